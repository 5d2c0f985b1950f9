package httpapi

import "net/http"

func (h Handler) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	stats, err := h.store.UserStats(r.Context(), id.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to gather stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}
