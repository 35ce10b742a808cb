package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/sandeepkv93/token-session-auth-service/internal/config"
)

const meterName = "token-session-auth-service"

type AppMetrics struct {
	authRegisterCounter     metric.Int64Counter
	authLoginCounter        metric.Int64Counter
	authRefreshCounter      metric.Int64Counter
	authLogoutCounter       metric.Int64Counter
	accessTokenCounter      metric.Int64Counter
	repositoryCounter       metric.Int64Counter
	rateLimitCounter        metric.Int64Counter
	refreshCollisionCounter metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		if err := RegisterMetrics(mp.Meter(meterName)); err != nil {
			return nil, err
		}
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	if err := RegisterMetrics(mp.Meter(meterName)); err != nil {
		return nil, err
	}
	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

// RegisterMetrics creates the application instruments on meter. Record*
// helpers are no-ops until it has been called.
func RegisterMetrics(meter metric.Meter) error {
	m := &AppMetrics{}
	var err error
	if m.authRegisterCounter, err = meter.Int64Counter("auth.register.attempts"); err != nil {
		return err
	}
	if m.authLoginCounter, err = meter.Int64Counter("auth.login.attempts"); err != nil {
		return err
	}
	if m.authRefreshCounter, err = meter.Int64Counter("auth.refresh.attempts"); err != nil {
		return err
	}
	if m.authLogoutCounter, err = meter.Int64Counter("auth.logout.attempts"); err != nil {
		return err
	}
	if m.accessTokenCounter, err = meter.Int64Counter("auth.access_token.validations"); err != nil {
		return err
	}
	if m.repositoryCounter, err = meter.Int64Counter("repository.operations"); err != nil {
		return err
	}
	if m.rateLimitCounter, err = meter.Int64Counter("rate_limit.decisions"); err != nil {
		return err
	}
	if m.refreshCollisionCounter, err = meter.Int64Counter("auth.refresh_token.collisions"); err != nil {
		return err
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthRegister(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authRegisterCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthLogin(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authLoginCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthRefresh(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authRefreshCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAuthLogout(ctx context.Context, status string) {
	if m := current(); m != nil {
		m.authLogoutCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	if m := current(); m != nil {
		m.accessTokenCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("source", source),
		))
	}
}

func RecordRepositoryOperation(ctx context.Context, repo, op, outcome string) {
	if m := current(); m != nil {
		m.repositoryCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		))
	}
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	if m := current(); m != nil {
		m.rateLimitCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
			attribute.String("mode", mode),
		))
	}
}

func RecordRefreshTokenCollision(ctx context.Context, outcome string) {
	if m := current(); m != nil {
		m.refreshCollisionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
