package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/credential"
)

type TokenHandler struct {
	store credential.Store
}

func NewTokenHandler(store credential.Store) *TokenHandler {
	return &TokenHandler{store: store}
}

type TokenDTO struct {
	Token string `json:"token"`
}

func (h *TokenHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.store.Get(r.Context(), credential.TokenKey)
	if errors.Is(err, credential.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "no token yet")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "token read failed", "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, TokenDTO{Token: token})
}

func (h *TokenHandler) SaveToken(w http.ResponseWriter, r *http.Request) {
	var req TokenDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Token == "" {
		respondError(w, http.StatusBadRequest, "invalid_token", "token must not be empty")
		return
	}

	if err := h.store.Set(r.Context(), credential.TokenKey, req.Token); err != nil {
		slog.ErrorContext(r.Context(), "token write failed", "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *TokenHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), credential.TokenKey); err != nil {
		slog.ErrorContext(r.Context(), "token delete failed", "request_id", getRequestID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
