package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/config"
	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/store"
	"github.com/otakuparshva/ai-recruitment/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "server",
		Short:         "Recruitment platform data service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $APP_CONFIG_PATH)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Connect to the store and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "indexes",
		Short: "Create the required indexes and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexes(cmd.Context(), configPath)
		},
	})
	return root
}

// setup loads .env, the configuration and the logger.
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if configPath == "" {
		configPath = os.Getenv("APP_CONFIG_PATH")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.Get()
	log.Info("configuration loaded",
		zap.String("addr", cfg.Address()),
		zap.String("database", cfg.Mongo.Database),
		zap.String("log_level", cfg.Log.Level),
	)
	return cfg, log, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(contextOrBackground(ctx), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := NewApp(cfg, store.MongoDialer{}, log)
	if err := app.Initialize(ctx); err != nil {
		if domain.IsKind(err, domain.KindConnectionFatal) {
			log.Error("store unreachable at startup, aborting", zap.Error(err))
		}
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start(ctx) }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	return errors.Join(err, app.Shutdown(shutdownCtx))
}

func runIndexes(ctx context.Context, configPath string) error {
	cfg, log, err := setup(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app := NewApp(cfg, store.MongoDialer{}, log)
	return app.ProvisionIndexes(contextOrBackground(ctx))
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 30 * time.Second
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
