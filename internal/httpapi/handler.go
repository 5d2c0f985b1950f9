package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"strings"

	"lazycook/backend/internal/auth"
	"lazycook/backend/internal/config"
	"lazycook/backend/internal/plan"
	"lazycook/backend/internal/provider"
	"lazycook/backend/internal/store"
)

type googleVerifier interface {
	Verify(ctx context.Context, idToken string) (auth.GoogleIdentity, error)
}

type modelRunner interface {
	Run(ctx context.Context, model string, req provider.Request) (provider.Result, error)
}

type Handler struct {
	cfg      config.Config
	db       *sql.DB
	store    *store.Store
	verifier googleVerifier
	runner   modelRunner
}

func NewHandler(cfg config.Config, db *sql.DB, st *store.Store, verifier googleVerifier, runner modelRunner) Handler {
	return Handler{cfg: cfg, db: db, store: st, verifier: verifier, runner: runner}
}

type contextKey string

const identityContextKey contextKey = "identity"

// identity is the resolved caller of a request: the persisted user, the
// effective storage key and the effective plan, override headers applied.
type identity struct {
	User   store.User
	UserID string
	Plan   string
}

func identityFromContext(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(identityContextKey).(identity)
	return id, ok
}

func (h Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// Login resolves an email to a persisted user and hands the email itself
// back as the bearer credential. The password is accepted and ignored; there
// is no real credential issuance. The plan is derived from the email on
// first sight and sticks afterwards.
func (h Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, http.StatusBadRequest, "invalid_request", "a valid email is required")
		return
	}

	user, err := h.store.UpsertUser(r.Context(), email, plan.FromEmail(email, h.cfg.DefaultPlan))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error", "failed to resolve user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": user.Email,
		"tokenType":   "bearer",
		"userId":      user.ID,
		"plan":        user.Plan,
	})
}

func (h Handler) AuthMe(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId": id.User.ID,
		"email":  id.User.Email,
		"plan":   id.Plan,
	})
}

// RequireIdentity resolves the bearer credential: a token containing "@" is
// an opaque email credential, anything else must verify as a Google ID
// token. X-User-ID switches the storage key; X-Plan switches the plan when
// the deployment allows it.
func (h Handler) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			return
		}

		var email string
		if auth.IsEmailToken(token) {
			email = auth.NormalizeEmail(token)
		} else {
			googleID, err := h.verifier.Verify(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "failed to verify id token")
				return
			}
			email = googleID.Email
		}

		user, err := h.store.UpsertUser(r.Context(), email, plan.FromEmail(email, h.cfg.DefaultPlan))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error", "failed to resolve user")
			return
		}

		id := identity{User: user, UserID: user.ID, Plan: user.Plan}

		if override := strings.TrimSpace(r.Header.Get("X-Plan")); override != "" && h.cfg.AllowPlanOverride {
			normalized, err := plan.Normalize(override)
			if err != nil {
				writeError(w, http.StatusBadRequest, "unknown_plan", "unknown plan in X-Plan header")
				return
			}
			id.Plan = normalized
		}
		if override := strings.TrimSpace(r.Header.Get("X-User-ID")); override != "" {
			id.UserID = override
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityContextKey, id)))
	})
}
