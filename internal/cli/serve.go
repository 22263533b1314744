package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"docquiz/internal/app"
	"docquiz/internal/config"
	"docquiz/internal/database"
	"docquiz/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to MongoDB and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if port != "" {
				cfg.App.Port = port
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.App.LogFile, cfg.App.IsProduction())
	defer log.Sync()

	if cfg.App.Env == config.EnvTest {
		log.Info("APP_ENV=test, nothing to serve")
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AI.IsEnabled() {
		log.Info("AI config",
			zap.String("questions", cfg.AI.Models.Questions),
			zap.String("rag", cfg.AI.Models.RAG))
	} else {
		log.Info("GEMINI_API_KEY not set, using fallback question generator")
	}

	a := app.New(cfg, log, database.MongoDialer{})
	if err := a.Run(ctx); err != nil {
		log.Error("Server failed", zap.Error(err))
		return err
	}
	return nil
}
