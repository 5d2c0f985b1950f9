// Package store persists per-user conversation, document and task history
// and assembles the bounded context that is prepended to model prompts.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrQuotaExceeded = errors.New("document quota exceeded")
)

type Config struct {
	ConversationLimit   int
	DocumentLimit       int
	CacheTTL            time.Duration
	MaxDocumentsPerUser int
	MaxStorageBytes     int64
}

type Store struct {
	db    *sql.DB
	cfg   Config
	cache *contextCache
}

func New(db *sql.DB, cfg Config) *Store {
	if cfg.ConversationLimit <= 0 {
		cfg.ConversationLimit = 70
	}
	if cfg.DocumentLimit <= 0 {
		cfg.DocumentLimit = 2
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Store{db: db, cfg: cfg, cache: newContextCache(cfg.CacheTTL)}
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Plan      string `json:"plan"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	ChatID       string    `json:"chatId,omitempty"`
	UserMessage  string    `json:"userMessage"`
	AIResponse   string    `json:"aiResponse"`
	Model        string    `json:"model,omitempty"`
	QualityScore float64   `json:"qualityScore"`
	Iterations   int       `json:"iterations"`
	Topics       []string  `json:"topics,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Document struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Filename    string            `json:"filename"`
	Content     string            `json:"content,omitempty"`
	MediaType   string            `json:"mediaType"`
	SizeBytes   int64             `json:"sizeBytes"`
	ContentHash string            `json:"contentHash,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	UploadedAt  time.Time         `json:"uploadedAt"`
}

type Task struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Priority     int       `json:"priority"`
	CreatedAt    time.Time `json:"createdAt"`
	ScheduledFor time.Time `json:"scheduledFor"`
}

// InvalidateContext drops every cached context entry for the user. Exposed
// for writes that happen outside this package (e.g. document upload).
func (s *Store) InvalidateContext(userID string) {
	s.cache.invalidateUser(userID)
}

// effectiveLimit resolves the conversation limit: a positive request value
// wins, otherwise the configured default applies.
func (s *Store) effectiveLimit(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.cfg.ConversationLimit
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	// Older rows may carry a space-separated timestamp.
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t
	}
	return time.Time{}
}

func encodeTopics(topics []string) string {
	if len(topics) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(topics)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeTopics(raw string) []string {
	if raw == "" || raw == "[]" {
		return nil
	}
	var topics []string
	if err := json.Unmarshal([]byte(raw), &topics); err != nil {
		return nil
	}
	return topics
}

func encodeMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func decodeMetadata(raw string) map[string]string {
	if raw == "" || raw == "{}" {
		return nil
	}
	var metadata map[string]string
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil
	}
	return metadata
}
