package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort              = "8080"
	defaultPlan              = "GO"
	defaultConversationLimit = 70
	defaultDocumentLimit     = 2
	defaultCacheTTLMinutes   = 5
	defaultMaxDocuments      = 100
	defaultMaxStorageBytes   = 100 * 1024 * 1024
	defaultMaxUploadBytes    = 25 * 1024 * 1024
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultGrokModel         = "grok-2-latest"
)

type Config struct {
	Port              string
	Environment       string
	AllowedOrigins    []string
	AllowCredentials  bool
	DatabaseURL       string
	DatabaseAuthToken string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string
	GrokAPIKey    string
	GrokBaseURL   string
	GrokModel     string

	GoogleClientID    string
	DefaultPlan       string
	AllowPlanOverride bool

	ConversationLimit   int
	DocumentLimit       int
	ContextCacheTTL     time.Duration
	MaxDocumentsPerUser int
	MaxStorageBytes     int64
	MaxUploadBytes      int64
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func Load() (Config, error) {
	// Missing .env is fine; real environment variables win either way.
	_ = godotenv.Load()

	cfg := Config{
		Port:                envOrDefault("PORT", defaultPort),
		Environment:         envOrDefault("APP_ENV", "development"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseAuthToken:   strings.TrimSpace(os.Getenv("DATABASE_AUTH_TOKEN")),
		GeminiAPIKey:        cleanKey(os.Getenv("GEMINI_API_KEY")),
		GeminiBaseURL:       envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:         envOrDefault("GEMINI_MODEL", defaultGeminiModel),
		GrokAPIKey:          cleanKey(os.Getenv("GROK_API_KEY")),
		GrokBaseURL:         envOrDefault("GROK_BASE_URL", "https://api.x.ai/v1"),
		GrokModel:           envOrDefault("GROK_MODEL", defaultGrokModel),
		GoogleClientID:      strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		DefaultPlan:         strings.ToUpper(envOrDefault("DEFAULT_PLAN", defaultPlan)),
		AllowPlanOverride:   boolOrDefault("ALLOW_PLAN_OVERRIDE", false),
		ConversationLimit:   intOrDefault("CONVERSATION_LIMIT", defaultConversationLimit),
		DocumentLimit:       intOrDefault("DOCUMENT_LIMIT", defaultDocumentLimit),
		MaxDocumentsPerUser: intOrDefault("MAX_DOCUMENTS_PER_USER", defaultMaxDocuments),
		MaxStorageBytes:     int64OrDefault("MAX_STORAGE_PER_USER_BYTES", defaultMaxStorageBytes),
		MaxUploadBytes:      int64OrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
	}

	ttlMinutes := intOrDefault("CONTEXT_CACHE_TTL_MINUTES", defaultCacheTTLMinutes)
	if ttlMinutes <= 0 {
		return Config{}, errors.New("CONTEXT_CACHE_TTL_MINUTES must be > 0")
	}
	cfg.ContextCacheTTL = time.Duration(ttlMinutes) * time.Minute

	rawOrigins := envOrDefault("CORS_ALLOWED_ORIGINS", "*")
	if rawOrigins == "*" {
		cfg.AllowedOrigins = []string{"*"}
		cfg.AllowCredentials = false
	} else {
		cfg.AllowedOrigins = parseList(rawOrigins)
		cfg.AllowCredentials = true
	}
	if len(cfg.AllowedOrigins) == 0 {
		return Config{}, errors.New("CORS_ALLOWED_ORIGINS must include at least one origin")
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	if strings.HasPrefix(cfg.DatabaseURL, "libsql://") && cfg.DatabaseAuthToken == "" {
		return Config{}, errors.New("DATABASE_AUTH_TOKEN is required for libsql:// URLs")
	}

	switch cfg.DefaultPlan {
	case "GO", "PRO", "ULTRA":
	default:
		return Config{}, fmt.Errorf("DEFAULT_PLAN must be GO, PRO or ULTRA, got %q", cfg.DefaultPlan)
	}

	if cfg.ConversationLimit <= 0 {
		cfg.ConversationLimit = defaultConversationLimit
	}
	if cfg.DocumentLimit <= 0 {
		cfg.DocumentLimit = defaultDocumentLimit
	}

	return cfg, nil
}

// cleanKey strips whitespace and the surrounding quotes that API keys pasted
// into .env files commonly carry.
func cleanKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.Trim(trimmed, `"`)
	return strings.Trim(trimmed, `'`)
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func boolOrDefault(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func intOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func int64OrDefault(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
