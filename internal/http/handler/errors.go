package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/token-session-auth-service/internal/http/response"
	"github.com/sandeepkv93/token-session-auth-service/internal/service"
)

// Body-borne refresh token failures answer 400 for a malformed value; the
// bearer header path in middleware answers 403 for the same kind.
var serviceErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{service.ErrAuthFailed, http.StatusForbidden, "AUTH_FAILED", "Please enter the correct username and password!"},
	{service.ErrMissingCredential, http.StatusForbidden, "MISSING_CREDENTIAL", "Credentials for refresh token were not provided."},
	{service.ErrMalformedCredential, http.StatusBadRequest, "MALFORMED_CREDENTIAL", "Invalid refresh token format"},
	{service.ErrUnknownCredential, http.StatusNotFound, "UNKNOWN_CREDENTIAL", "Please provide the correct refresh token"},
	{service.ErrExpiredCredential, http.StatusForbidden, "EXPIRED_CREDENTIAL", "Expired refresh token, please login again."},
	{service.ErrCredentialExpired, http.StatusForbidden, "CREDENTIAL_EXPIRED", "Access token expired"},
	{service.ErrPrincipalNotFound, http.StatusForbidden, "PRINCIPAL_NOT_FOUND", "User not found"},
	{service.ErrPrincipalInactive, http.StatusForbidden, "PRINCIPAL_INACTIVE", "User is inactive"},
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", verr.Fields)
		return
	}
	for _, e := range serviceErrors {
		if errors.Is(err, e.err) {
			response.Error(w, r, e.status, e.code, e.message, nil)
			return
		}
	}
	slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	response.Error(w, r, http.StatusBadRequest, "INVALID_REQUEST", "request body must be a JSON object", map[string]string{"reason": err.Error()})
}
