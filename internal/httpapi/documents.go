package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lazycook/backend/internal/store"
)

func (h Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	docs, err := h.store.UserDocuments(r.Context(), id.UserID, h.cfg.MaxDocumentsPerUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to list documents")
		return
	}

	responses := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		responses = append(responses, documentResponse{
			ID:         doc.ID,
			Filename:   doc.Filename,
			MediaType:  doc.MediaType,
			SizeBytes:  doc.SizeBytes,
			UploadedAt: doc.UploadedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": responses})
}

func (h Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	documentID := chi.URLParam(r, "documentID")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "document id is required")
		return
	}

	if err := h.store.DeleteDocument(r.Context(), id.UserID, documentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "document does not exist")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error", "failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
