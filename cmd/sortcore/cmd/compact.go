package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the vector index",
		Long:  `Rebuild the vector index from live records, dropping tombstones left by removed resources.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.Compact(ctx); err != nil {
				return err
			}
			stats, err := engine.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compacted: %d live vectors, %d tombstones\n",
				stats.Vector.Live, stats.Vector.Tombstones)
			return nil
		},
	}
}
