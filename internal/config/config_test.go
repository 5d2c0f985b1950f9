package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:local.db")

	unsetIfSet(t, "CORS_ALLOWED_ORIGINS")
	unsetIfSet(t, "DEFAULT_PLAN")
	unsetIfSet(t, "CONVERSATION_LIMIT")
	unsetIfSet(t, "CONTEXT_CACHE_TTL_MINUTES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.DefaultPlan != "GO" {
		t.Fatalf("expected default plan GO, got %s", cfg.DefaultPlan)
	}
	if cfg.ConversationLimit != 70 {
		t.Fatalf("expected default conversation limit 70, got %d", cfg.ConversationLimit)
	}
	if cfg.DocumentLimit != 2 {
		t.Fatalf("expected default document limit 2, got %d", cfg.DocumentLimit)
	}
	if cfg.ContextCacheTTL.Minutes() != 5 {
		t.Fatalf("expected default 5m cache ttl, got %v", cfg.ContextCacheTTL)
	}
	if cfg.GeminiBaseURL != "https://generativelanguage.googleapis.com/v1beta" {
		t.Fatalf("unexpected gemini base url: %s", cfg.GeminiBaseURL)
	}
	if cfg.GrokBaseURL != "https://api.x.ai/v1" {
		t.Fatalf("unexpected grok base url: %s", cfg.GrokBaseURL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.AllowCredentials {
		t.Fatal("wildcard origins must not allow credentials")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}

func TestLoadRequiresAuthTokenForRemoteDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "libsql://example.turso.io")
	t.Setenv("DATABASE_AUTH_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_AUTH_TOKEN is missing for libsql URL")
	}
}

func TestLoadRejectsUnknownDefaultPlan(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:local.db")
	t.Setenv("DEFAULT_PLAN", "MEGA")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown DEFAULT_PLAN")
	}
}

func TestLoadExplicitOriginsEnableCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:local.db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, http://localhost:5173")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if !cfg.AllowCredentials {
		t.Fatal("explicit origins should allow credentials")
	}
}

func TestLoadStripsQuotedAPIKeys(t *testing.T) {
	t.Setenv("DATABASE_URL", "file:local.db")
	t.Setenv("GEMINI_API_KEY", `"abc123"`)
	t.Setenv("GROK_API_KEY", "'xyz789'")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GeminiAPIKey != "abc123" {
		t.Fatalf("expected unquoted gemini key, got %q", cfg.GeminiAPIKey)
	}
	if cfg.GrokAPIKey != "xyz789" {
		t.Fatalf("expected unquoted grok key, got %q", cfg.GrokAPIKey)
	}
}

func unsetIfSet(t *testing.T, key string) {
	t.Helper()
	if _, ok := os.LookupEnv(key); ok {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset env %s: %v", key, err)
		}
	}
}
