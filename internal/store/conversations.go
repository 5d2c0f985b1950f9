package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// SaveConversation writes a turn to both the permanent history and the
// session store, mirroring the dual conversations/new-chat layout the
// frontend expects. Any cached context for the user is invalidated first.
func (s *Store) SaveConversation(ctx context.Context, conv Conversation) (Conversation, error) {
	if strings.TrimSpace(conv.UserID) == "" {
		return Conversation{}, fmt.Errorf("save conversation: user id is required")
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	createdAt := formatTime(conv.CreatedAt)
	conv.CreatedAt = parseTime(createdAt)

	s.cache.invalidateUser(conv.UserID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Conversation{}, fmt.Errorf("save conversation: %w", err)
	}
	defer tx.Rollback()

	const insert = `
INSERT INTO %s (id, user_id, chat_id, user_message, ai_response, model, quality_score, iterations, topics, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  ai_response   = excluded.ai_response,
  quality_score = excluded.quality_score,
  iterations    = excluded.iterations,
  topics        = excluded.topics;
`
	for _, table := range []string{"conversations", "session_conversations"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(insert, table),
			conv.ID,
			conv.UserID,
			conv.ChatID,
			conv.UserMessage,
			conv.AIResponse,
			conv.Model,
			conv.QualityScore,
			conv.Iterations,
			encodeTopics(conv.Topics),
			createdAt,
		); err != nil {
			return Conversation{}, fmt.Errorf("save conversation to %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Conversation{}, fmt.Errorf("save conversation: %w", err)
	}
	return conv, nil
}

// SessionConversations returns the newest unsaved turns for a user, newest
// first. All chats are included: context is shared across plans and models.
func (s *Store) SessionConversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	return s.queryConversations(ctx, "session_conversations", userID, s.effectiveLimit(limit))
}

// RecentConversations returns the newest turns from permanent history,
// newest first, across all of the user's chats.
func (s *Store) RecentConversations(ctx context.Context, userID string, limit int) ([]Conversation, error) {
	return s.queryConversations(ctx, "conversations", userID, s.effectiveLimit(limit))
}

func (s *Store) queryConversations(ctx context.Context, table, userID string, limit int) ([]Conversation, error) {
	query := fmt.Sprintf(`
SELECT id, user_id, chat_id, user_message, ai_response, model, quality_score, iterations, topics, created_at
FROM %s
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?;
`, table)

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	out := make([]Conversation, 0, limit)
	for rows.Next() {
		var conv Conversation
		var topics, createdAt string
		if err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.ChatID,
			&conv.UserMessage,
			&conv.AIResponse,
			&conv.Model,
			&conv.QualityScore,
			&conv.Iterations,
			&topics,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		conv.Topics = decodeTopics(topics)
		conv.CreatedAt = parseTime(createdAt)
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// PromoteChat moves a chat's session turns into permanent history and clears
// them from the session store, returning how many were promoted. Promoting a
// chat that has no session turns is not an error.
func (s *Store) PromoteChat(ctx context.Context, userID, chatID string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("promote chat: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO conversations (id, user_id, chat_id, user_message, ai_response, model, quality_score, iterations, topics, created_at)
SELECT id, user_id, chat_id, user_message, ai_response, model, quality_score, iterations, topics, created_at
FROM session_conversations
WHERE user_id = ? AND chat_id = ?
ON CONFLICT(id) DO NOTHING;
`, userID, chatID); err != nil {
		return 0, fmt.Errorf("promote chat copy: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
DELETE FROM session_conversations
WHERE user_id = ? AND chat_id = ?;
`, userID, chatID)
	if err != nil {
		return 0, fmt.Errorf("promote chat clear: %w", err)
	}
	promoted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("promote chat rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("promote chat: %w", err)
	}

	s.cache.invalidateUser(userID)
	return int(promoted), nil
}

// CleanupSession drops all of a user's session turns. History is untouched.
func (s *Store) CleanupSession(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `
DELETE FROM session_conversations
WHERE user_id = ?;
`, userID); err != nil {
		return fmt.Errorf("cleanup session: %w", err)
	}
	s.cache.invalidateUser(userID)
	return nil
}

// UserInsights aggregates quality metadata over a user's history.
func (s *Store) UserInsights(ctx context.Context, userID string) (avgQuality float64, avgIterations float64, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT COALESCE(AVG(quality_score), 0), COALESCE(AVG(iterations), 0)
FROM conversations
WHERE user_id = ?;
`, userID)
	if err := row.Scan(&avgQuality, &avgIterations); err != nil {
		return 0, 0, fmt.Errorf("user insights: %w", err)
	}
	return avgQuality, avgIterations, nil
}
