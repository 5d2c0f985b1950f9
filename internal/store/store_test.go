package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"lazycook/backend/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	return New(database, Config{
		ConversationLimit:   10,
		DocumentLimit:       2,
		CacheTTL:            5 * time.Minute,
		MaxDocumentsPerUser: 3,
		MaxStorageBytes:     1 << 20,
	})
}

func seedConversation(t *testing.T, store *Store, conv Conversation) Conversation {
	t.Helper()
	saved, err := store.SaveConversation(context.Background(), conv)
	if err != nil {
		t.Fatalf("save conversation: %v", err)
	}
	return saved
}

func TestUpsertUserKeepsStoredPlan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertUser(ctx, "Pro.User@Example.com", "PRO")
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if first.Email != "pro.user@example.com" {
		t.Fatalf("expected lowercased email, got %q", first.Email)
	}
	if first.Plan != "PRO" {
		t.Fatalf("expected plan PRO, got %q", first.Plan)
	}

	again, err := store.UpsertUser(ctx, "pro.user@example.com", "GO")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected stable user id, got %q then %q", first.ID, again.ID)
	}
	if again.Plan != "PRO" {
		t.Fatalf("expected stored plan to survive, got %q", again.Plan)
	}
}

func TestUserByEmailNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.UserByEmail(context.Background(), "ghost@example.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveConversationWritesBothTables(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedConversation(t, store, Conversation{
		UserID:      "u1",
		ChatID:      "chat-a",
		UserMessage: "hello",
		AIResponse:  "hi there",
	})

	session, err := store.SessionConversations(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("session conversations: %v", err)
	}
	if len(session) != 1 {
		t.Fatalf("expected 1 session turn, got %d", len(session))
	}

	historical, err := store.RecentConversations(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("recent conversations: %v", err)
	}
	if len(historical) != 1 {
		t.Fatalf("expected 1 historical turn, got %d", len(historical))
	}
	if historical[0].ID != session[0].ID {
		t.Fatalf("expected the same turn id in both tables")
	}
}

func TestPromoteChatClearsSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedConversation(t, store, Conversation{
			UserID:      "u1",
			ChatID:      "chat-a",
			UserMessage: "question",
			AIResponse:  "answer",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		})
	}
	seedConversation(t, store, Conversation{
		UserID:      "u1",
		ChatID:      "chat-b",
		UserMessage: "other chat",
		AIResponse:  "still here",
		CreatedAt:   base,
	})

	promoted, err := store.PromoteChat(ctx, "u1", "chat-a")
	if err != nil {
		t.Fatalf("promote chat: %v", err)
	}
	if promoted != 3 {
		t.Fatalf("expected 3 promoted turns, got %d", promoted)
	}

	session, err := store.SessionConversations(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("session conversations: %v", err)
	}
	if len(session) != 1 || session[0].ChatID != "chat-b" {
		t.Fatalf("expected only chat-b to remain in session, got %+v", session)
	}

	// Promoting again is a no-op, not an error.
	promoted, err = store.PromoteChat(ctx, "u1", "chat-a")
	if err != nil {
		t.Fatalf("second promote: %v", err)
	}
	if promoted != 0 {
		t.Fatalf("expected 0 newly promoted turns, got %d", promoted)
	}
}

func TestPendingTasksOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	save := func(desc string, priority int, scheduled time.Time, status string) {
		t.Helper()
		if _, err := store.SaveTask(ctx, Task{
			UserID:       "u1",
			Description:  desc,
			Priority:     priority,
			ScheduledFor: scheduled,
			Status:       status,
		}); err != nil {
			t.Fatalf("save task %q: %v", desc, err)
		}
	}

	save("low", 1, now.Add(-2*time.Hour), "pending")
	save("high", 5, now.Add(-time.Hour), "pending")
	save("done", 9, now.Add(-time.Hour), "completed")
	save("future", 9, now.Add(time.Hour), "pending")

	due, err := store.PendingTasks(ctx, "u1", now)
	if err != nil {
		t.Fatalf("pending tasks: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due tasks, got %d", len(due))
	}
	if due[0].Description != "high" || due[1].Description != "low" {
		t.Fatalf("expected priority ordering high,low; got %q,%q", due[0].Description, due[1].Description)
	}
}

func TestUserStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedConversation(t, store, Conversation{
		UserID:       "u1",
		UserMessage:  "q",
		AIResponse:   "a",
		QualityScore: 8,
		Iterations:   2,
	})
	seedConversation(t, store, Conversation{
		UserID:       "u1",
		UserMessage:  "q2",
		AIResponse:   "a2",
		QualityScore: 6,
		Iterations:   4,
	})
	if _, err := store.SaveDocument(ctx, Document{
		UserID:   "u1",
		Filename: "notes.txt",
		Content:  "hello",
	}); err != nil {
		t.Fatalf("save document: %v", err)
	}

	stats, err := store.UserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("user stats: %v", err)
	}
	if stats.Conversations != 2 || stats.SessionTurns != 2 {
		t.Fatalf("unexpected conversation counts: %+v", stats)
	}
	if stats.Documents != 1 || stats.StorageBytes != 5 {
		t.Fatalf("unexpected document stats: %+v", stats)
	}
	if stats.AvgQualityScore != 7 {
		t.Fatalf("expected avg quality 7, got %v", stats.AvgQualityScore)
	}
	if stats.AvgIterations != 3 {
		t.Fatalf("expected avg iterations 3, got %v", stats.AvgIterations)
	}
}
