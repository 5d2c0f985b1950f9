package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// PromoteChat moves a chat's session turns into the permanent history.
// The optional JSON body (a title, unused for now) is drained and ignored.
func (h Handler) PromoteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	chatID := chi.URLParam(r, "chatID")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "chat id is required")
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(r.Body, 1<<20))

	promoted, err := h.store.PromoteChat(r.Context(), id.UserID, chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to promote chat")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"chatId":   chatID,
		"promoted": promoted,
	})
}
