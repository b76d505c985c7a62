package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Display resource counts, per-category and per-language breakdowns, and strategy availability.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			stats, err := engine.Stats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			fmt.Fprintf(out, "Resources:       %d\n", stats.TotalResources)
			fmt.Fprintf(out, "Semantic search: %v", stats.SemanticAvailable)
			if stats.EmbeddingModel != "" {
				fmt.Fprintf(out, " (%s)", stats.EmbeddingModel)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Vector index:    %d live, %d tombstones\n", stats.Vector.Live, stats.Vector.Tombstones)
			fmt.Fprintf(out, "Lexical docs:    %d\n", stats.LexicalDocs)
			if stats.SkippedRecords > 0 {
				fmt.Fprintf(out, "Skipped records: %d\n", stats.SkippedRecords)
			}
			printCounts(out, "Categories", stats.Categories)
			printCounts(out, "Languages", stats.Languages)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printCounts(out io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(out, "%s:\n", label)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-20s %d\n", k, counts[k])
	}
}
