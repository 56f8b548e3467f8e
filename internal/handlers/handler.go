package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/chatline-im/chatline/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db    store.DataStore
	cache *store.RedisStore // optional, may be nil
}

// NewHandler creates a new Handler with the given stores.
func NewHandler(db store.DataStore, cache *store.RedisStore) *Handler {
	return &Handler{db: db, cache: cache}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
