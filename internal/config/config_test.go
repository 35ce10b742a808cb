package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearAuthEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "DATABASE_DRIVER", "DATABASE_URL", "JWT_SECRET", "JWT_ACCESS_TTL",
		"JWT_REFRESH_TTL", "BCRYPT_COST", "AUTH_RATE_LIMIT_RPM", "API_RATE_LIMIT_RPM",
		"NEGATIVE_LOOKUP_CACHE_TTL", "RATE_LIMIT_FAIL_OPEN", "REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDevelopmentDefaults(t *testing.T) {
	clearAuthEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("unexpected access ttl %s", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 24*time.Hour {
		t.Fatalf("unexpected refresh ttl %s", cfg.RefreshTokenTTL)
	}
	if cfg.DatabaseDriver != DatabaseDriverSQLite {
		t.Fatalf("unexpected driver %q", cfg.DatabaseDriver)
	}
	if cfg.JWTSecret == "" {
		t.Fatal("expected development secret fallback")
	}
}

func TestLoadParsesDurations(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "90s")
	t.Setenv("JWT_REFRESH_TTL", "72h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AccessTokenTTL != 90*time.Second || cfg.RefreshTokenTTL != 72*time.Hour {
		t.Fatalf("unexpected ttls access=%s refresh=%s", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	}
}

func TestLoadRejectsUnparseableDuration(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("JWT_ACCESS_TTL", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if got := classifyConfigLoadError(err); got != "parse" {
		t.Fatalf("expected parse class, got %q (%v)", got, err)
	}
}

func TestLoadProductionRequiresStrongSecret(t *testing.T) {
	clearAuthEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error for short secret")
	}
	if !strings.Contains(err.Error(), "JWT_SECRET must be at least") {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := classifyConfigLoadError(err); got != "validation" {
		t.Fatalf("expected validation class, got %q", got)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := &Config{
		Env:              "production",
		DatabaseDriver:   "mongodb",
		AccessTokenTTL:   0,
		RefreshTokenTTL:  -time.Second,
		BcryptCost:       2,
		AuthRateLimitRPM: 1,
		APIRateLimitRPM:  1,
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET is required", "JWT_ACCESS_TTL", "JWT_REFRESH_TTL", "DATABASE_DRIVER", "BCRYPT_COST"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestLoadEnvFileMissingIsNoop(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}
}

func TestLoadEnvFilePreservesExisting(t *testing.T) {
	t.Setenv("AUTH_TEST_EXISTING", "from-env")
	t.Setenv("AUTH_TEST_NEW", "")
	os.Unsetenv("AUTH_TEST_NEW")
	file := filepath.Join(t.TempDir(), "test.env")
	content := "# comment\nAUTH_TEST_EXISTING=from-file\nAUTH_TEST_NEW=hello\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("AUTH_TEST_NEW") })

	if err := LoadEnvFile(file); err != nil {
		t.Fatalf("load env file: %v", err)
	}
	if got := os.Getenv("AUTH_TEST_EXISTING"); got != "from-env" {
		t.Fatalf("expected existing var to be preserved, got %q", got)
	}
	if got := os.Getenv("AUTH_TEST_NEW"); got != "hello" {
		t.Fatalf("unexpected AUTH_TEST_NEW=%q", got)
	}
}
