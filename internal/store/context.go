package store

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	maxContextChars      = 8000
	maxUserMessageChars  = 500
	maxAIResponseChars   = 1000
	maxTopicsPerTurn     = 3
	chatMarkerChars      = 20
	emptyHistoryFallback = "No previous conversation history available."
)

// ContextOptions shape a single context assembly request.
type ContextOptions struct {
	// Limit bounds how many conversation turns are considered; <= 0 uses
	// the configured default. The limit is part of the cache key.
	Limit int
	// Prompt drives document relevance filtering when nothing is attached.
	Prompt string
	// AttachedIDs pin specific documents into the context.
	AttachedIDs []string
	// SkipDocuments omits the document section entirely.
	SkipDocuments bool
}

// ContextResult carries the assembled context plus enough detail for the
// debug endpoint to explain where it came from.
type ContextResult struct {
	Context                 string `json:"context"`
	Cached                  bool   `json:"cached"`
	Conversations           int    `json:"conversations"`
	SessionConversations    int    `json:"sessionConversations"`
	HistoricalConversations int    `json:"historicalConversations"`
	Documents               int    `json:"documents"`
}

type contextTurn struct {
	conv    Conversation
	session bool
}

// historySnapshot is the cached form of the conversation section: the
// rendering plus the counts behind it, so cache hits report the same
// numbers as the assembly that produced them.
type historySnapshot struct {
	rendered   string
	session    int
	historical int
}

// AssembleContext builds the full prompt context for a user: the cached
// conversation history section first, then any document section, closed by a
// footer. Document selection depends on the request (attachments, prompt
// keywords) so only the conversation section is cached.
func (s *Store) AssembleContext(ctx context.Context, userID string, opts ContextOptions) (ContextResult, error) {
	limit := s.effectiveLimit(opts.Limit)

	history, cached := s.conversationContext(ctx, userID, limit)

	var result ContextResult
	result.Cached = cached
	result.SessionConversations = history.session
	result.HistoricalConversations = history.historical
	result.Conversations = history.session + history.historical

	var builder strings.Builder
	builder.WriteString(history.rendered)

	if !opts.SkipDocuments {
		docSection, docCount, err := s.documentSection(ctx, userID, opts)
		if err != nil {
			return ContextResult{}, err
		}
		if docSection != "" {
			builder.WriteString("\n\n=== RELEVANT DOCUMENTS ===")
			builder.WriteString(docSection)
			result.Documents = docCount
		}
	}

	builder.WriteString("\n\n=== END OF CONTEXT ===")
	result.Context = builder.String()
	return result, nil
}

// conversationContext returns the rendered history section for a user,
// serving from the cache when a fresh entry exists. Fetch errors degrade to
// an empty half rather than failing the request; the fallback string is
// cached like any other result so a user with no history does not hit the
// database on every request.
func (s *Store) conversationContext(ctx context.Context, userID string, limit int) (historySnapshot, bool) {
	key := cacheKey(userID, limit)
	if snapshot, ok := s.cache.get(key); ok {
		return snapshot, true
	}

	half := limit / 2
	if half < 1 {
		half = 1
	}

	session, err := s.SessionConversations(ctx, userID, half)
	if err != nil {
		log.Printf("store: session history fetch for %s failed: %v", userID, err)
		session = nil
	}
	historical, err := s.RecentConversations(ctx, userID, half)
	if err != nil {
		log.Printf("store: historical fetch for %s failed: %v", userID, err)
		historical = nil
	}

	merged := mergeTurns(session, historical, limit)
	snapshot := historySnapshot{}
	if len(merged) == 0 {
		snapshot.rendered = emptyHistoryFallback
		s.cache.set(key, snapshot)
		return snapshot, false
	}

	snapshot.rendered = renderHistory(merged)
	for _, turn := range merged {
		if turn.session {
			snapshot.session++
		} else {
			snapshot.historical++
		}
	}
	s.cache.set(key, snapshot)
	return snapshot, false
}

// mergeTurns combines session and historical turns, dropping session entries
// that were already promoted into history, newest first, capped at limit.
func mergeTurns(session, historical []Conversation, limit int) []contextTurn {
	seen := make(map[string]struct{}, len(historical))
	for _, conv := range historical {
		seen[conv.ID] = struct{}{}
	}

	merged := make([]contextTurn, 0, len(session)+len(historical))
	for _, conv := range session {
		if _, dup := seen[conv.ID]; dup {
			continue
		}
		merged = append(merged, contextTurn{conv: conv, session: true})
	}
	for _, conv := range historical {
		merged = append(merged, contextTurn{conv: conv})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].conv.CreatedAt.After(merged[j].conv.CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// renderHistory turns merged conversation turns into the bounded text block
// injected ahead of the prompt. Rendering stops once the character budget is
// spent and notes how many turns were dropped.
func renderHistory(turns []contextTurn) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "=== CONVERSATION CONTEXT (last %d conversations) ===\n", len(turns))

	for i, turn := range turns {
		block := renderTurn(i+1, turn)
		if builder.Len()+len(block) > maxContextChars {
			fmt.Fprintf(&builder, "\n... (%d more conversations truncated) ...\n", len(turns)-i)
			break
		}
		builder.WriteString(block)
	}
	return builder.String()
}

func renderTurn(index int, turn contextTurn) string {
	conv := turn.conv

	source := "Previous Session"
	if turn.session {
		source = "Current Session"
	}

	var block strings.Builder
	fmt.Fprintf(&block, "\n[%d] %s | %s", index, conv.CreatedAt.UTC().Format("2006-01-02 15:04"), source)
	if conv.ChatID != "" {
		fmt.Fprintf(&block, " | Chat: %s", truncate(conv.ChatID, chatMarkerChars))
	}
	block.WriteString("\n")
	fmt.Fprintf(&block, "User: %s\n", truncate(conv.UserMessage, maxUserMessageChars))
	fmt.Fprintf(&block, "AI: %s\n", truncate(conv.AIResponse, maxAIResponseChars))

	if conv.QualityScore > 0 || conv.Iterations > 0 {
		fmt.Fprintf(&block, "[Q:%.1f | I:%d]\n", conv.QualityScore, conv.Iterations)
	}
	if len(conv.Topics) > 0 {
		topics := conv.Topics
		if len(topics) > maxTopicsPerTurn {
			topics = topics[:maxTopicsPerTurn]
		}
		fmt.Fprintf(&block, "[Topics: %s]\n", strings.Join(topics, ", "))
	}
	return block.String()
}

func (s *Store) documentSection(ctx context.Context, userID string, opts ContextOptions) (string, int, error) {
	// Document bodies go into the context whole, attached or discovered.
	// Preview stays off here; it exists for display surfaces only.
	docOpts := DocumentContextOptions{
		Limit:       s.cfg.DocumentLimit,
		AttachedIDs: opts.AttachedIDs,
		Query:       opts.Prompt,
	}
	section, err := s.DocumentsContext(ctx, userID, docOpts)
	if err != nil {
		return "", 0, err
	}
	return section, strings.Count(section, "--- Document "), nil
}

// truncate clips on rune boundaries so a clipped message stays valid UTF-8.
func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	return string([]rune(value)[:limit]) + "..."
}
