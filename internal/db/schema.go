package db

import (
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`
CREATE TABLE IF NOT EXISTS users (
  id         TEXT PRIMARY KEY,
  email      TEXT NOT NULL UNIQUE,
  plan       TEXT NOT NULL DEFAULT 'GO',
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
`,
	`
CREATE TABLE IF NOT EXISTS conversations (
  id            TEXT PRIMARY KEY,
  user_id       TEXT NOT NULL,
  chat_id       TEXT NOT NULL DEFAULT '',
  user_message  TEXT NOT NULL,
  ai_response   TEXT NOT NULL,
  model         TEXT NOT NULL DEFAULT '',
  quality_score REAL NOT NULL DEFAULT 0,
  iterations    INTEGER NOT NULL DEFAULT 0,
  topics        TEXT NOT NULL DEFAULT '[]',
  created_at    TEXT NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_conversations_user_created
  ON conversations (user_id, created_at DESC);
`,
	`
CREATE TABLE IF NOT EXISTS session_conversations (
  id            TEXT PRIMARY KEY,
  user_id       TEXT NOT NULL,
  chat_id       TEXT NOT NULL DEFAULT '',
  user_message  TEXT NOT NULL,
  ai_response   TEXT NOT NULL,
  model         TEXT NOT NULL DEFAULT '',
  quality_score REAL NOT NULL DEFAULT 0,
  iterations    INTEGER NOT NULL DEFAULT 0,
  topics        TEXT NOT NULL DEFAULT '[]',
  created_at    TEXT NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_session_conversations_user_created
  ON session_conversations (user_id, created_at DESC);
`,
	`
CREATE TABLE IF NOT EXISTS documents (
  id           TEXT PRIMARY KEY,
  user_id      TEXT NOT NULL,
  filename     TEXT NOT NULL,
  content      TEXT NOT NULL,
  media_type   TEXT NOT NULL DEFAULT 'text/plain',
  size_bytes   INTEGER NOT NULL DEFAULT 0,
  content_hash TEXT NOT NULL DEFAULT '',
  metadata     TEXT NOT NULL DEFAULT '{}',
  uploaded_at  TEXT NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_documents_user_uploaded
  ON documents (user_id, uploaded_at DESC);
`,
	`
CREATE TABLE IF NOT EXISTS tasks (
  id            TEXT PRIMARY KEY,
  user_id       TEXT NOT NULL,
  description   TEXT NOT NULL,
  status        TEXT NOT NULL DEFAULT 'pending',
  priority      INTEGER NOT NULL DEFAULT 0,
  created_at    TEXT NOT NULL,
  scheduled_for TEXT NOT NULL
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_tasks_user_status
  ON tasks (user_id, status);
`,
}

// Migrate applies the schema. Statements are idempotent so startup can run
// this unconditionally.
func Migrate(database *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := database.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
