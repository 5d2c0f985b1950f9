package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"lazycook/backend/internal/auth"
	"lazycook/backend/internal/config"
	"lazycook/backend/internal/provider"
	"lazycook/backend/internal/store"
)

func NewRouter(cfg config.Config, db *sql.DB) http.Handler {
	st := store.New(db, store.Config{
		ConversationLimit:   cfg.ConversationLimit,
		DocumentLimit:       cfg.DocumentLimit,
		CacheTTL:            cfg.ContextCacheTTL,
		MaxDocumentsPerUser: cfg.MaxDocumentsPerUser,
		MaxStorageBytes:     cfg.MaxStorageBytes,
	})
	verifier := auth.NewVerifier(cfg)
	runner := provider.NewRunner(cfg, nil)
	h := NewHandler(cfg, db, st, verifier, runner)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-Plan"},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Route("/auth", func(authR chi.Router) {
			authR.Post("/login", h.Login)
			authR.With(h.RequireIdentity).Get("/me", h.AuthMe)
		})

		v1.Group(func(p chi.Router) {
			p.Use(h.RequireIdentity)
			p.Post("/ai/run", h.AIRun)
			p.Post("/files", h.UploadFile)
			p.Get("/documents", h.ListDocuments)
			p.Delete("/documents/{documentID}", h.DeleteDocument)
			p.Post("/chats/{chatID}/promote", h.PromoteChat)
			p.Get("/tasks", h.ListTasks)
			p.Post("/tasks", h.CreateTask)
			p.Get("/debug/context", h.DebugContext)
			p.Get("/stats", h.Stats)
		})
	})

	return r
}
