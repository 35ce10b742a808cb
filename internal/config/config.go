package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverMemory   = "memory"

	minJWTSecretBytes = 32
)

type Config struct {
	Env                   string
	HTTPAddr              string
	HTTPReadHeaderTimeout time.Duration
	ShutdownTimeout       time.Duration

	DatabaseDriver string
	DatabaseURL    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int

	AuthRateLimitRPM       int
	APIRateLimitRPM        int
	RateLimitFailOpen      bool
	NegativeLookupCacheTTL time.Duration

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracingEnabled        bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
	EnableOTelHTTP            bool
	LogLevel                  string
}

// LoadEnvFile seeds the process environment from a dotenv file. Variables that
// are already set win over the file. A missing file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Load() (*Config, error) {
	cfg, err := load()
	profile := os.Getenv("APP_ENV")
	if err != nil {
		recordConfigValidationEvent(context.Background(), profile, "error", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.Env, "success", "none")
	return cfg, nil
}

func load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DatabaseDriverSQLite)),
		DatabaseURL:    getEnv("DATABASE_URL", "file:auth.db?cache=shared"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      getEnv("JWT_ISSUER", "token-session-auth-service"),

		OTELServiceName:          getEnv("OTEL_SERVICE_NAME", "token-session-auth-service"),
		OTELEnvironment:          getEnv("OTEL_ENVIRONMENT", "local"),
		OTELExporterOTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.HTTPReadHeaderTimeout, err = getDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.AccessTokenTTL, err = getDuration("JWT_ACCESS_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = getDuration("JWT_REFRESH_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.NegativeLookupCacheTTL, err = getDuration("NEGATIVE_LOOKUP_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimitRPM, err = getInt("AUTH_RATE_LIMIT_RPM", 30); err != nil {
		return nil, err
	}
	if cfg.APIRateLimitRPM, err = getInt("API_RATE_LIMIT_RPM", 600); err != nil {
		return nil, err
	}
	if cfg.RateLimitFailOpen, err = getBool("RATE_LIMIT_FAIL_OPEN", true); err != nil {
		return nil, err
	}
	if cfg.OTELExporterOTLPInsecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}
	if cfg.OTELMetricsEnabled, err = getBool("OTEL_METRICS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELTracingEnabled, err = getBool("OTEL_TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTELLogsEnabled, err = getBool("OTEL_LOGS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.EnableOTelHTTP, err = getBool("ENABLE_OTEL_HTTP", false); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = "dev-only-jwt-secret-change-me-0123456789"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "", "dev", "development", "local", "test":
		return true
	}
	return false
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if !c.IsDevelopment() && len(c.JWTSecret) < minJWTSecretBytes {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretBytes))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be positive"))
	}
	if c.RefreshTokenTTL > 0 && c.AccessTokenTTL > c.RefreshTokenTTL {
		errs = append(errs, errors.New("JWT_ACCESS_TTL must not exceed JWT_REFRESH_TTL"))
	}
	switch c.DatabaseDriver {
	case DatabaseDriverPostgres, DatabaseDriverSQLite:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required"))
		}
	case DatabaseDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}
	if c.AuthRateLimitRPM <= 0 || c.APIRateLimitRPM <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.NegativeLookupCacheTTL < 0 {
		errs = append(errs, errors.New("NEGATIVE_LOOKUP_CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}
