package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"creatorChallengeAPI/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is not set")
		}

		pool, err := openPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to database")
			return err
		}
		defer pool.Close()

		if err := storage.Migrate(ctx, pool); err != nil {
			logger.Error("migration failed")
			return err
		}

		logger.Info("migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
