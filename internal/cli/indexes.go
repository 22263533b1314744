package cli

import (
	"context"

	"docquiz/internal/app"
	"docquiz/internal/config"
	"docquiz/internal/database"
	"docquiz/internal/logger"

	"github.com/spf13/cobra"
)

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logger.New(cfg.App.LogFile, cfg.App.IsProduction())
			defer log.Sync()

			a := app.New(cfg, log, database.MongoDialer{})
			defer a.Close(context.Background())

			ctx := cmd.Context()
			if err := a.Connect(ctx); err != nil {
				return err
			}
			if err := a.EnsureIndexes(ctx); err != nil {
				return err
			}
			log.Info("indexes created")
			return nil
		},
	}
}
