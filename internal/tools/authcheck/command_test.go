package authcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sandeepkv93/token-session-auth-service/internal/http/handler"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/router"
	"github.com/sandeepkv93/token-session-auth-service/internal/repository"
	"github.com/sandeepkv93/token-session-auth-service/internal/security"
	"github.com/sandeepkv93/token-session-auth-service/internal/service"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	users := repository.NewInMemoryUserRepository()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	codec := security.NewTokenCodec(security.TokenCodecConfig{
		Secret:    "authcheck-test-secret-0123456789abcdef",
		Issuer:    "authcheck-test",
		AccessTTL: 5 * time.Minute,
	})
	tokens := service.NewRefreshTokenStore(users, service.NewInMemoryNegativeLookupCacheStore(), service.RefreshTokenStoreConfig{
		TTL:              time.Hour,
		NegativeCacheTTL: time.Minute,
	})
	srv := httptest.NewServer(router.NewRouter(router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(service.NewSessionService(users, hasher, codec, tokens, nil)),
		UserHandler:      handler.NewUserHandler(service.NewUserService(users, hasher)),
		TokenVerifier:    codec,
		Principals:       users,
		AuthRateLimitRPM: 100,
		APIRateLimitRPM:  100,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunCompletesLifecycle(t *testing.T) {
	srv := newAPIServer(t)
	details, err := Run(context.Background(), &Client{BaseURL: srv.URL + "/", HTTP: srv.Client()}, "smoke-user")
	if err != nil {
		t.Fatalf("run: %v (details=%v)", err, details)
	}
	if len(details) != 8 {
		t.Fatalf("expected 8 completed steps, got %d: %v", len(details), details)
	}
	if details[len(details)-1] != "refresh after logout rejected: ok" {
		t.Fatalf("unexpected last step %q", details[len(details)-1])
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	srv := newAPIServer(t)
	client := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	if _, err := Run(context.Background(), client, "dup-user"); err != nil {
		t.Fatalf("first run: %v", err)
	}

	details, err := Run(context.Background(), client, "dup-user")
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if !strings.HasPrefix(err.Error(), "register:") {
		t.Fatalf("expected register failure, got %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected only readiness to complete, got %v", details)
	}
}

func TestExpectReportsUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 400)))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	_, err := c.expect(context.Background(), http.MethodGet, "/health/ready", "", nil, http.StatusOK)
	if err == nil || !strings.Contains(err.Error(), "status 503 want 200") {
		t.Fatalf("expected status mismatch, got %v", err)
	}
	if !strings.HasSuffix(err.Error(), "...") {
		t.Fatalf("expected truncated body in error, got %v", err)
	}
}

func TestPrintCIResult(t *testing.T) {
	var buf bytes.Buffer
	printCIResult(&buf, false, "authcheck run", []string{"readiness: ok"}, context.DeadlineExceeded)

	var out struct {
		OK      bool     `json:"ok"`
		Title   string   `json:"title"`
		Details []string `json:"details"`
		Error   string   `json:"error"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.OK || out.Title != "authcheck run" || len(out.Details) != 1 || out.Error == "" {
		t.Fatalf("unexpected ci output %+v", out)
	}
}

func TestNewRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"base-url", "timeout", "ci"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Fatalf("expected --%s flag", name)
		}
	}
	if run, _, err := cmd.Find([]string{"run"}); err != nil || run.Name() != "run" {
		t.Fatalf("expected run subcommand, got %v", err)
	}
}
