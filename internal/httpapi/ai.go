package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"lazycook/backend/internal/plan"
	"lazycook/backend/internal/provider"
	"lazycook/backend/internal/store"
)

type aiRunRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	ChatID      string   `json:"chatId,omitempty"`
	DocumentIDs []string `json:"documentIds,omitempty"`
}

type aiRunMetadata struct {
	QualityScore      float64 `json:"qualityScore"`
	Iterations        int     `json:"iterations"`
	AvgQualityScore   float64 `json:"avgQualityScore"`
	AvgIterations     float64 `json:"avgIterations"`
	ConversationLimit int     `json:"conversationLimit"`
	DocumentLimit     int     `json:"documentLimit"`
	UserID            string  `json:"userId"`
}

type aiRunResponse struct {
	Model      string               `json:"model"`
	Response   string               `json:"response"`
	Metadata   aiRunMetadata        `json:"metadata"`
	Comparison *provider.Comparison `json:"comparison,omitempty"`
}

// AIRun is the main inference endpoint: plan check, context assembly,
// backend dispatch, then persistence of the new turn.
func (h Handler) AIRun(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	var req aiRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	allowed, err := plan.ModelFor(id.Plan)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_plan", "plan does not map to a model")
		return
	}

	model := allowed
	if strings.TrimSpace(req.Model) != "" {
		requested := plan.NormalizeRequestedModel(req.Model)
		if !plan.KnownModel(requested) {
			writeError(w, http.StatusBadRequest, "unknown_model", "model is not recognized")
			return
		}
		if requested != allowed {
			writeError(w, http.StatusForbidden, "model_not_allowed", "plan "+id.Plan+" does not include this model, upgrade to use it")
			return
		}
		model = requested
	}

	assembled, err := h.store.AssembleContext(r.Context(), id.UserID, store.ContextOptions{
		Limit:       h.cfg.ConversationLimit,
		Prompt:      req.Prompt,
		AttachedIDs: req.DocumentIDs,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to assemble context")
		return
	}

	result, err := h.runner.Run(r.Context(), model, provider.Request{
		Prompt:  req.Prompt,
		Context: assembled.Context,
	})
	if err != nil {
		if errors.Is(err, provider.ErrMissingGeminiKey) || errors.Is(err, provider.ErrMissingGrokKey) {
			writeError(w, http.StatusServiceUnavailable, "provider_unconfigured", "model backend is not configured")
			return
		}
		log.Printf("ai run failed: user_id=%s model=%s err=%v", id.UserID, model, err)
		writeError(w, http.StatusBadGateway, "provider_error", "model backend request failed")
		return
	}

	// The answer is already in hand; a persistence failure costs history,
	// not the response.
	if _, err := h.store.SaveConversation(r.Context(), store.Conversation{
		UserID:       id.UserID,
		ChatID:       req.ChatID,
		UserMessage:  req.Prompt,
		AIResponse:   result.Response,
		Model:        result.Model,
		QualityScore: result.QualityScore,
		Iterations:   result.Iterations,
	}); err != nil {
		log.Printf("persist conversation failed: user_id=%s err=%v", id.UserID, err)
	}

	avgQuality, avgIterations, err := h.store.UserInsights(r.Context(), id.UserID)
	if err != nil {
		log.Printf("user insights failed: user_id=%s err=%v", id.UserID, err)
	}

	writeJSON(w, http.StatusOK, aiRunResponse{
		Model:    result.Model,
		Response: result.Response,
		Metadata: aiRunMetadata{
			QualityScore:      result.QualityScore,
			Iterations:        result.Iterations,
			AvgQualityScore:   avgQuality,
			AvgIterations:     avgIterations,
			ConversationLimit: h.cfg.ConversationLimit,
			DocumentLimit:     h.cfg.DocumentLimit,
			UserID:            id.UserID,
		},
		Comparison: result.Comparison,
	})
}

// DebugContext exposes the assembled context verbatim so prompt issues can
// be inspected without calling a backend.
func (h Handler) DebugContext(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}

	limit := h.cfg.ConversationLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	assembled, err := h.store.AssembleContext(r.Context(), id.UserID, store.ContextOptions{
		Limit:  limit,
		Prompt: r.URL.Query().Get("prompt"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to assemble context")
		return
	}

	writeJSON(w, http.StatusOK, assembled)
}
