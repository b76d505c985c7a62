// Package cmd provides the CLI commands for sortcore.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Melik1986/sortcore/internal/config"
	"github.com/Melik1986/sortcore/internal/embed"
	"github.com/Melik1986/sortcore/internal/logging"
	"github.com/Melik1986/sortcore/internal/search"
	"github.com/Melik1986/sortcore/pkg/version"
)

var (
	configPath string
	dataDir    string
	logLevel   string
	noEmbed    bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the sortcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sortcore",
		Short: "Hybrid retrieval engine for content resources",
		Long: `Sortcore indexes content resources and answers ranked queries by
fusing dense-vector, TF-IDF, keyword and metadata retrieval.

All data lives in a local directory (default ~/.sortcore).`,
		Version:      version.Short(),
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("sortcore version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override data directory")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&noEmbed, "no-embed", false, "Disable the embedding provider (semantic search off)")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newCompactCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogging(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logCfg := logging.DefaultConfig(cfg.Paths.DataDir)
	logCfg.Level = cfg.Logging.Level
	logCfg.WriteToStderr = false
	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		// Logging is best effort in the CLI; commands still work without it.
		fmt.Fprintf(os.Stderr, "warning: logging setup failed: %v\n", err)
		return nil
	}
	loggingCleanup = cleanup
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.Paths.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// openEngine builds an engine for one CLI invocation. The caller must Close it.
func openEngine(ctx context.Context) (*search.Engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	var provider embed.Provider
	if !noEmbed {
		dims := cfg.Vector.Dimensions
		if dims == 0 {
			dims = embed.DefaultStaticDimensions
		}
		provider = embed.NewCachedProvider(embed.NewStaticProvider(dims), embed.DefaultCacheSize)
	}
	engine, err := search.Open(ctx, cfg, provider, slog.Default())
	if err != nil {
		return nil, err
	}
	return engine, nil
}
