package handler

import (
	"net/http"

	"github.com/sandeepkv93/token-session-auth-service/internal/http/middleware"
	"github.com/sandeepkv93/token-session-auth-service/internal/http/response"
	"github.com/sandeepkv93/token-session-auth-service/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.ErrPrincipalNotFound)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, service.ErrPrincipalNotFound)
		return
	}
	var req service.UpdateProfileInput
	if err := response.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, r, err)
		return
	}
	updated, err := h.users.UpdateProfile(r.Context(), user, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, updated)
}
