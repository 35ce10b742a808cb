package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func doFrom(h http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.RemoteAddr = addr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestLocalLimiterBlocksAfterLimitPerClient(t *testing.T) {
	h := NewRateLimiter(NewLocalFixedWindowLimiter(), 2, time.Minute, FailClosed, "auth").Middleware()(okHandler())

	for i := 0; i < 2; i++ {
		if rr := doFrom(h, "10.0.0.1:1234"); rr.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i, rr.Code)
		}
	}
	rr := doFrom(h, "10.0.0.1:5678")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if rr := doFrom(h, "10.0.0.2:1234"); rr.Code != http.StatusNoContent {
		t.Fatalf("other client should not be limited, got %d", rr.Code)
	}
}

func TestLocalLimiterWindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newLocalFixedWindowLimiter(func() time.Time { return now })
	ctx := context.Background()

	if d, _ := limiter.Allow(ctx, "k", 1, time.Minute); !d.Allowed {
		t.Fatal("first hit should pass")
	}
	if d, _ := limiter.Allow(ctx, "k", 1, time.Minute); d.Allowed {
		t.Fatal("second hit should be denied")
	}
	now = now.Add(time.Minute)
	d, _ := limiter.Allow(ctx, "k", 1, time.Minute)
	if !d.Allowed || d.Remaining != 0 {
		t.Fatalf("expected fresh window, got %+v", d)
	}
}

func TestRedisLimiterSharesCounterAndExpires(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := NewRateLimiter(NewRedisFixedWindowLimiter(client, "rl_test"), 2, time.Minute, FailClosed, "auth").Middleware()(okHandler())
	b := NewRateLimiter(NewRedisFixedWindowLimiter(client, "rl_test"), 2, time.Minute, FailClosed, "auth").Middleware()(okHandler())

	if rr := doFrom(a, "10.0.0.1:1"); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := doFrom(b, "10.0.0.1:2"); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr := doFrom(a, "10.0.0.1:3"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected shared limit to deny, got %d", rr.Code)
	}

	server.FastForward(61 * time.Second)
	if rr := doFrom(b, "10.0.0.1:4"); rr.Code != http.StatusNoContent {
		t.Fatalf("expected window reset, got %d", rr.Code)
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (Decision, error) {
	return Decision{}, errors.New("backend down")
}

func TestRateLimiterFailureModes(t *testing.T) {
	open := NewRateLimiter(brokenLimiter{}, 1, time.Minute, FailOpen, "api").Middleware()(okHandler())
	if rr := doFrom(open, "10.0.0.1:1"); rr.Code != http.StatusNoContent {
		t.Fatalf("fail open should pass, got %d", rr.Code)
	}
	closed := NewRateLimiter(brokenLimiter{}, 1, time.Minute, FailClosed, "api").Middleware()(okHandler())
	if rr := doFrom(closed, "10.0.0.1:1"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("fail closed should reject, got %d", rr.Code)
	}
}
