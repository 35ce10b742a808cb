package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sandeepkv93/token-session-auth-service/internal/domain"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/response"
	"github.com/sandeepkv93/token-session-auth-service/internal/observability"
	"github.com/sandeepkv93/token-session-auth-service/internal/repository"
	"github.com/sandeepkv93/token-session-auth-service/internal/security"
	"github.com/sandeepkv93/token-session-auth-service/internal/service"
)

type (
	principalContextKey struct{}
	denialContextKey    struct{}
)

type AccessTokenVerifier interface {
	VerifyAccessToken(raw string) (uint, error)
}

type PrincipalLoader interface {
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

// Denial records why a presented access token was refused.
type Denial struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// Authenticate resolves the bearer token, if any, into a principal. It never
// writes a response: a refusal is attached to the context as a Denial and is
// only rendered by RequireAuthenticated.
func Authenticate(tokens AccessTokenVerifier, users PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				observability.RecordAccessTokenValidation(r.Context(), "absent", "none")
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			user, denial := resolvePrincipal(ctx, tokens, users, header)
			if denial != nil {
				observability.RecordAccessTokenValidation(ctx, strings.ToLower(denial.Code), "bearer")
				ctx = context.WithValue(ctx, denialContextKey{}, denial)
			} else {
				observability.RecordAccessTokenValidation(ctx, "valid", "bearer")
				ctx = context.WithValue(ctx, principalContextKey{}, user)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated lets the request through only when Authenticate
// attached a principal.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		if denial, ok := DenialFromContext(r.Context()); ok {
			response.Error(w, r, denial.Status, denial.Code, denial.Message, nil)
			return
		}
		response.Error(w, r, http.StatusForbidden, "NOT_AUTHENTICATED", "Authentication credentials were not provided.", nil)
	})
}

func PrincipalFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(principalContextKey{}).(*domain.User)
	return u, ok && u != nil
}

func DenialFromContext(ctx context.Context) (*Denial, bool) {
	d, ok := ctx.Value(denialContextKey{}).(*Denial)
	return d, ok && d != nil
}

func resolvePrincipal(ctx context.Context, tokens AccessTokenVerifier, users PrincipalLoader, header string) (*domain.User, *Denial) {
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || strings.TrimSpace(raw) == "" {
		return nil, deny(service.ErrMalformedCredential, "MALFORMED_CREDENTIAL", "Token prefix missing")
	}

	userID, err := tokens.VerifyAccessToken(strings.TrimSpace(raw))
	switch {
	case errors.Is(err, security.ErrExpiredToken):
		return nil, deny(service.ErrCredentialExpired, "CREDENTIAL_EXPIRED", "Access token expired")
	case err != nil:
		return nil, deny(service.ErrMalformedCredential, "MALFORMED_CREDENTIAL", "Invalid access token")
	}

	user, err := users.FindByID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return nil, deny(service.ErrPrincipalNotFound, "PRINCIPAL_NOT_FOUND", "User not found")
	case err != nil:
		slog.ErrorContext(ctx, "load principal failed", "user_id", userID, "error", err)
		return nil, &Denial{Err: err, Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: "internal server error"}
	}
	if !user.IsActive {
		return nil, deny(service.ErrPrincipalInactive, "PRINCIPAL_INACTIVE", "User is inactive")
	}
	return user, nil
}

func deny(err error, code, message string) *Denial {
	return &Denial{Err: err, Status: http.StatusForbidden, Code: code, Message: message}
}
