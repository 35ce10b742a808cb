package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/sandeepkv93/token-session-auth-service/internal/config"
	"github.com/sandeepkv93/token-session-auth-service/internal/di"
	"github.com/sandeepkv93/token-session-auth-service/internal/observability"
	"github.com/sandeepkv93/token-session-auth-service/internal/repository"
)

type options struct {
	envFile string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "api",
		Short:        "Token session auth service",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading configuration")
	cmd.AddCommand(newServeCommand(opts), newMigrateCommand(opts))
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, logger, lp, err := bootstrap(ctx, opts)
			if err != nil {
				return err
			}
			application, cleanup, err := di.InitializeApp(ctx, cfg, logger, lp)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer cleanup()
			return application.Run(ctx)
		},
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, lp, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if lp != nil {
				defer func() { _ = lp.Shutdown(context.WithoutCancel(cmd.Context())) }()
			}
			switch cfg.DatabaseDriver {
			case config.DatabaseDriverPostgres:
				return repository.Migrate(cmd.Context(), cfg.DatabaseURL, logger)
			case config.DatabaseDriverSQLite:
				_, cleanup, err := repository.OpenDatabase(cfg)
				if err != nil {
					return err
				}
				cleanup()
				logger.Info("sqlite schema migrated", "dsn", cfg.DatabaseURL)
				return nil
			default:
				logger.Info("nothing to migrate", "driver", cfg.DatabaseDriver)
				return nil
			}
		},
	}
}

func bootstrap(ctx context.Context, opts *options) (*config.Config, *slog.Logger, *sdklog.LoggerProvider, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, nil, nil, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, lp, err := observability.InitLogger(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, lp, nil
}
