package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SaveTask records a scheduled task for the user. A zero ScheduledFor means
// the task is due immediately.
func (s *Store) SaveTask(ctx context.Context, task Task) (Task, error) {
	if strings.TrimSpace(task.UserID) == "" {
		return Task{}, fmt.Errorf("save task: user id is required")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = "pending"
	}
	createdAt := formatTime(task.CreatedAt)
	scheduledFor := formatTime(task.ScheduledFor)
	task.CreatedAt = parseTime(createdAt)
	task.ScheduledFor = parseTime(scheduledFor)

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, user_id, description, status, priority, created_at, scheduled_for)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  description   = excluded.description,
  status        = excluded.status,
  priority      = excluded.priority,
  scheduled_for = excluded.scheduled_for;
`,
		task.ID,
		task.UserID,
		task.Description,
		task.Status,
		task.Priority,
		createdAt,
		scheduledFor,
	); err != nil {
		return Task{}, fmt.Errorf("save task: %w", err)
	}
	return task, nil
}

// PendingTasks returns the user's due tasks: status pending and scheduled at
// or before now, highest priority first, earlier schedule breaking ties.
func (s *Store) PendingTasks(ctx context.Context, userID string, now time.Time) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, description, status, priority, created_at, scheduled_for
FROM tasks
WHERE user_id = ? AND status = 'pending' AND scheduled_for <= ?
ORDER BY priority DESC, scheduled_for ASC;
`, userID, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var task Task
		var createdAt, scheduledFor string
		if err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Description,
			&task.Status,
			&task.Priority,
			&createdAt,
			&scheduledFor,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		task.CreatedAt = parseTime(createdAt)
		task.ScheduledFor = parseTime(scheduledFor)
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// CompleteTask marks a pending task done; ErrNotFound when the id is not
// the user's.
func (s *Store) CompleteTask(ctx context.Context, userID, taskID string) error {
	result, err := s.db.ExecContext(ctx, `
UPDATE tasks
SET status = 'completed'
WHERE id = ? AND user_id = ?;
`, taskID, userID)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete task rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
