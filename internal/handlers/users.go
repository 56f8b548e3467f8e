package handlers

import (
	"net/http"
)

// ListUsers handles GET /api/users: every known user, online first,
// then by name. When the unread cache is configured and the caller
// passes ?for=<email>, each user carries that caller's unread count.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	if owner := r.URL.Query().Get("for"); owner != "" && h.cache != nil {
		counts, err := h.cache.UnreadCounts(r.Context(), owner)
		if err == nil {
			for i := range users {
				users[i].Unread = counts[users[i].Email]
			}
		}
	}

	h.JSON(w, http.StatusOK, users)
}
