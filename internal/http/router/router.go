package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/token-session-auth-service/internal/health"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/handler"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/response"
)

type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	UserHandler       *handler.UserHandler
	TokenVerifier     middleware.AccessTokenVerifier
	Principals        middleware.PrincipalLoader
	AuthRateLimitRPM  int
	APIRateLimitRPM   int
	GlobalRateLimiter RateLimiterFunc
	AuthRateLimiter   RateLimiterFunc
	Readiness         *health.ProbeRunner
	EnableOTelHTTP    bool
}

type RateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(middleware.NewLocalFixedWindowLimiter(), dep.APIRateLimitRPM, time.Minute, middleware.FailClosed, "api").Middleware())
	}

	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(middleware.NewLocalFixedWindowLimiter(), dep.AuthRateLimitRPM, time.Minute, middleware.FailClosed, "auth").Middleware()
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(dep.TokenVerifier, dep.Principals))

		// Public: a bad bearer header is ignored here.
		r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
		r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
		r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh)
		r.With(authLimiter).Post("/logout", dep.AuthHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated)
			r.Get("/me", dep.UserHandler.Me)
			r.Post("/me", dep.UserHandler.UpdateMe)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
