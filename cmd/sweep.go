package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sweepChallengeID string

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one sweep over active challenges and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return errors.New("DATABASE_URL is not set")
		}

		a, err := newApp(ctx, cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.Close()

		if sweepChallengeID != "" {
			id, err := uuid.Parse(sweepChallengeID)
			if err != nil {
				return err
			}
			return a.orchestrator.SweepOne(ctx, id, time.Now())
		}

		report, err := a.orchestrator.Sweep(ctx, time.Now())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	sweepCmd.Flags().StringVar(&sweepChallengeID, "challenge", "", "only process this challenge id")
	rootCmd.AddCommand(sweepCmd)
}
