package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/userapi"
	"github.com/fjod/storefront/internal/users"
	"github.com/go-chi/chi/v5"
)

type UserLoader interface {
	Load(ctx context.Context) users.Result
	Lookup(ctx context.Context, id int64) (domain.User, error)
}

type UserHandler struct {
	loader UserLoader
}

func NewUserHandler(loader UserLoader) *UserHandler {
	return &UserHandler{loader: loader}
}

type UserListDTO struct {
	State   domain.LoadState `json:"state"`
	Offline bool             `json:"offline"`
	Users   []domain.User    `json:"users"`
}

// ListUsers always answers 200; a failed refresh shows up in state/offline.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	res := h.loader.Load(r.Context())
	respondJSON(w, http.StatusOK, UserListDTO{
		State:   res.State,
		Offline: res.State.Offline(),
		Users:   res.Users,
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "id must be a positive integer")
		return
	}

	user, err := h.loader.Lookup(r.Context(), id)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, user)
	case errors.Is(err, userapi.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "user not found")
	default:
		respondError(w, http.StatusServiceUnavailable, "user_unavailable", "user info is not available offline")
	}
}
