package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/ad-user-manager/internal/transport"
	"github.com/go-chi/chi"
)

const cacheClearedMessage = "User cache cleared."

type ServiceAPI interface {
	GetUsers(ctx context.Context) ([]User, error)
	Invalidate()
	GetUserDetail(ctx context.Context, username string) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetUsers handles GET /users
func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.GetUsers(r.Context())
	if err != nil {
		h.Logger.Error("GetUsers: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, users[i].ToResponse())
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// RefreshCache handles POST /api/refresh-users-cache
func (h *Handler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	h.Service.Invalidate()

	h.WriteJSON(w, http.StatusOK, RefreshCacheResponse{
		Success: true,
		Message: cacheClearedMessage,
	})
}

// GetUser handles GET /users/{username}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.WriteError(w, http.StatusBadRequest, "username is required")
		return
	}

	u, err := h.Service.GetUserDetail(r.Context(), username)
	if err != nil {
		h.Logger.Error("GetUser: service error", "error", err, "username", username)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u.ToDetailResponse())
}
