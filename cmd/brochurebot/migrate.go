package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/brochurebot/internal/adapters/driven/vespa"
	"github.com/custodia-labs/brochurebot/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema and prepare the vector index",
	Long: `Create the Postgres schema and prepare the configured vector index.

Qdrant collections are created on first open. For Vespa the chunk
application package is deployed to vector.vespa_config_url. Running
migrate again is safe.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		a, err := openApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.db.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}
		logger.Info("postgres schema ready")

		if cfg.Vector.Backend == config.BackendVespa {
			cluster := vespa.DefaultConfig(cfg.Vector.VespaURL, cfg.VectorDimensions()).Cluster
			if err := vespa.NewDeployer().Deploy(ctx, cfg.Vector.VespaConfigURL, cluster, cfg.VectorDimensions()); err != nil {
				return fmt.Errorf("deploy vespa schema: %w", err)
			}
			logger.Info("vespa application deployed", zap.Int("dimensions", cfg.VectorDimensions()))
		}

		if _, err := a.vectorIndex(ctx); err != nil {
			return err
		}
		return nil
	},
}
