package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats summarizes a user's stored footprint for the stats endpoint.
type Stats struct {
	Conversations      int       `json:"conversations"`
	SessionTurns       int       `json:"sessionTurns"`
	Documents          int       `json:"documents"`
	StorageBytes       int64     `json:"storageBytes"`
	PendingTasks       int       `json:"pendingTasks"`
	AvgQualityScore    float64   `json:"avgQualityScore"`
	AvgIterations      float64   `json:"avgIterations"`
	OldestConversation time.Time `json:"oldestConversation"`
	NewestConversation time.Time `json:"newestConversation"`
}

// UserStats gathers counts and aggregates across all of the user's tables.
func (s *Store) UserStats(ctx context.Context, userID string) (Stats, error) {
	var stats Stats

	var oldest, newest sql.NullString
	var avgQuality, avgIterations sql.NullFloat64
	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), MIN(created_at), MAX(created_at), AVG(quality_score), AVG(iterations)
FROM conversations
WHERE user_id = ?;
`, userID)
	if err := row.Scan(&stats.Conversations, &oldest, &newest, &avgQuality, &avgIterations); err != nil {
		return Stats{}, fmt.Errorf("conversation stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestConversation = parseTime(oldest.String)
	}
	if newest.Valid {
		stats.NewestConversation = parseTime(newest.String)
	}
	stats.AvgQualityScore = avgQuality.Float64
	stats.AvgIterations = avgIterations.Float64

	row = s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM session_conversations
WHERE user_id = ?;
`, userID)
	if err := row.Scan(&stats.SessionTurns); err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}

	var storage sql.NullInt64
	row = s.db.QueryRowContext(ctx, `
SELECT COUNT(*), SUM(size_bytes)
FROM documents
WHERE user_id = ?;
`, userID)
	if err := row.Scan(&stats.Documents, &storage); err != nil {
		return Stats{}, fmt.Errorf("document stats: %w", err)
	}
	stats.StorageBytes = storage.Int64

	row = s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM tasks
WHERE user_id = ? AND status = 'pending';
`, userID)
	if err := row.Scan(&stats.PendingTasks); err != nil {
		return Stats{}, fmt.Errorf("task stats: %w", err)
	}

	return stats, nil
}
