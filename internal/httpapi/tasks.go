package httpapi

import (
	"net/http"
	"strings"
	"time"

	"lazycook/backend/internal/store"
)

func (h Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	tasks, err := h.store.PendingTasks(r.Context(), id.UserID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

type createTaskRequest struct {
	Description  string `json:"description"`
	Priority     int    `json:"priority,omitempty"`
	ScheduledFor string `json:"scheduledFor,omitempty"`
}

func (h Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "description is required")
		return
	}

	var scheduledFor time.Time
	if raw := strings.TrimSpace(req.ScheduledFor); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "scheduledFor must be RFC3339")
			return
		}
		scheduledFor = parsed
	}

	task, err := h.store.SaveTask(r.Context(), store.Task{
		UserID:       id.UserID,
		Description:  req.Description,
		Priority:     req.Priority,
		ScheduledFor: scheduledFor,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to save task")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"task": task})
}
