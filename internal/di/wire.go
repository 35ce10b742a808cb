//go:build wireinject

package di

import (
	"context"
	"log/slog"

	"github.com/google/wire"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/sandeepkv93/token-session-auth-service/internal/app"
	"github.com/sandeepkv93/token-session-auth-service/internal/config"
)

func InitializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, lp *sdklog.LoggerProvider) (*app.App, func(), error) {
	wire.Build(ConfigSet, RepositorySet, ServiceSet, HTTPSet)
	return nil, nil, nil
}
