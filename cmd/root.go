package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sadikovi/pulsar/config"
	"github.com/sadikovi/pulsar/engine"
	"github.com/sadikovi/pulsar/storage"
	"github.com/sadikovi/pulsar/utils"
)

var (
	cfg    *config.Config
	logger *utils.Logger

	rootCmd = &cobra.Command{
		Use:   "pulsar",
		Short: "pulsar — explore property offers on a priority map",
		Long: "Pulsar scrapes property listings, groups them into a region hierarchy,\n" +
			"classifies each offer against a reference price, and serves an API for\n" +
			"navigating the result as a zoomable map.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.Load()
			logger = utils.NewLoggerAt(utils.ParseLevel(cfg.LogLevel))
		},
	}
)

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		ingestCmd(),
		reportCmd(),
		datasetsCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openStore picks the bundle store configured for this run: PostgreSQL when
// enabled, the data directory otherwise.
func openStore(ctx context.Context) (storage.BundleStore, error) {
	if cfg.PostgresEnabled {
		return storage.NewPostgresStore(ctx, cfg.DSN(), logger)
	}
	return storage.NewDirStore(cfg.DataDir, logger)
}

// loadPolicy returns the configured classification policy, or nil when the
// default thresholds apply.
func loadPolicy() (*engine.Policy, error) {
	if cfg.PolicyPath == "" {
		return nil, nil
	}
	p, err := engine.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
