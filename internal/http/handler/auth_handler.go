package handler

import (
	"net/http"

	"github.com/sandeepkv93/token-session-auth-service/internal/http/response"
	"github.com/sandeepkv93/token-session-auth-service/internal/observability"
	"github.com/sandeepkv93/token-session-auth-service/internal/service"
)

type AuthHandler struct {
	sessions *service.SessionService
}

func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := response.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	user, err := h.sessions.Register(r.Context(), req)
	if err != nil {
		observability.Audit(r, "auth.register", "outcome", "rejected")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.register", "outcome", "success", "user_id", user.ID)
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	pair, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		observability.Audit(r, "auth.login", "outcome", "rejected")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login", "outcome", "success")
	response.JSON(w, r, http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	pair, err := h.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		observability.Audit(r, "auth.refresh", "outcome", "rejected")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.refresh", "outcome", "success")
	response.JSON(w, r, http.StatusOK, pair)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	if err := h.sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		observability.Audit(r, "auth.logout", "outcome", "rejected")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.logout", "outcome", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"success": "User logged out."})
}
