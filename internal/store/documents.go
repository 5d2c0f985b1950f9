package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const documentPreviewChars = 500

// SaveDocument stores a document after checking the user's count and byte
// quotas. The user's cached context is invalidated because document context
// is baked into it.
func (s *Store) SaveDocument(ctx context.Context, doc Document) (Document, error) {
	if strings.TrimSpace(doc.UserID) == "" {
		return Document{}, fmt.Errorf("save document: user id is required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.SizeBytes <= 0 {
		doc.SizeBytes = int64(len(doc.Content))
	}
	uploadedAt := formatTime(doc.UploadedAt)
	doc.UploadedAt = parseTime(uploadedAt)

	if s.cfg.MaxDocumentsPerUser > 0 || s.cfg.MaxStorageBytes > 0 {
		var count int
		var used sql.NullInt64
		row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*), SUM(size_bytes)
FROM documents
WHERE user_id = ?;
`, doc.UserID)
		if err := row.Scan(&count, &used); err != nil {
			return Document{}, fmt.Errorf("document quota check: %w", err)
		}
		if s.cfg.MaxDocumentsPerUser > 0 && count >= s.cfg.MaxDocumentsPerUser {
			return Document{}, fmt.Errorf("%w: document count limit %d reached", ErrQuotaExceeded, s.cfg.MaxDocumentsPerUser)
		}
		if s.cfg.MaxStorageBytes > 0 && used.Int64+doc.SizeBytes > s.cfg.MaxStorageBytes {
			return Document{}, fmt.Errorf("%w: storage limit %d bytes reached", ErrQuotaExceeded, s.cfg.MaxStorageBytes)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO documents (id, user_id, filename, content, media_type, size_bytes, content_hash, metadata, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  filename = excluded.filename,
  content  = excluded.content;
`,
		doc.ID,
		doc.UserID,
		doc.Filename,
		doc.Content,
		doc.MediaType,
		doc.SizeBytes,
		doc.ContentHash,
		encodeMetadata(doc.Metadata),
		uploadedAt,
	); err != nil {
		return Document{}, fmt.Errorf("save document: %w", err)
	}

	s.cache.invalidateUser(doc.UserID)
	return doc, nil
}

// UserDocuments lists a user's documents newest first, content included.
func (s *Store) UserDocuments(ctx context.Context, userID string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, filename, content, media_type, size_bytes, content_hash, metadata, uploaded_at
FROM documents
WHERE user_id = ?
ORDER BY uploaded_at DESC
LIMIT ?;
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	out := make([]Document, 0, limit)
	for rows.Next() {
		var doc Document
		var metadata, uploadedAt string
		if err := rows.Scan(
			&doc.ID,
			&doc.UserID,
			&doc.Filename,
			&doc.Content,
			&doc.MediaType,
			&doc.SizeBytes,
			&doc.ContentHash,
			&metadata,
			&uploadedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Metadata = decodeMetadata(metadata)
		doc.UploadedAt = parseTime(uploadedAt)
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// DeleteDocument removes a document scoped to its owner; ErrNotFound when
// the id does not belong to the user.
func (s *Store) DeleteDocument(ctx context.Context, userID, documentID string) error {
	result, err := s.db.ExecContext(ctx, `
DELETE FROM documents
WHERE id = ? AND user_id = ?;
`, documentID, userID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	s.cache.invalidateUser(userID)
	return nil
}

type DocumentContextOptions struct {
	// Limit bounds how many documents are injected; <= 0 uses the
	// configured default.
	Limit int
	// AttachedIDs restricts the context to exactly these documents, in
	// order. IDs that do not resolve are skipped; none resolving yields an
	// empty context.
	AttachedIDs []string
	// Query enables keyword relevance filtering of the candidate set when
	// no documents are attached.
	Query string
	// Preview truncates document bodies instead of injecting full content.
	Preview bool
}

// DocumentsContext renders the document section of the prompt context. With
// attached IDs only those documents appear (marked ATTACHED, like an upload
// pinned to the message); otherwise the most relevant recent documents are
// selected.
func (s *Store) DocumentsContext(ctx context.Context, userID string, opts DocumentContextOptions) (string, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.cfg.DocumentLimit
	}

	// Over-fetch so attachment lookups and relevance filtering have a
	// candidate pool larger than the final cut.
	fetch := limit*2 + len(opts.AttachedIDs)
	if fetch < 10 {
		fetch = 10
	}
	candidates, err := s.UserDocuments(ctx, userID, fetch)
	if err != nil {
		return "", err
	}

	attached := make(map[string]struct{}, len(opts.AttachedIDs))
	var selected []Document
	if len(opts.AttachedIDs) > 0 {
		byID := make(map[string]Document, len(candidates))
		for _, doc := range candidates {
			byID[doc.ID] = doc
		}
		for _, id := range opts.AttachedIDs {
			doc, ok := byID[id]
			if !ok {
				continue
			}
			attached[id] = struct{}{}
			selected = append(selected, doc)
		}
	} else {
		selected = rankByRelevance(candidates, opts.Query, limit)
	}

	if len(selected) == 0 {
		return "", nil
	}

	var builder strings.Builder
	for i, doc := range selected {
		marker := ""
		if _, ok := attached[doc.ID]; ok {
			marker = " (ATTACHED)"
		}
		fmt.Fprintf(&builder, "\n--- Document %d: %s%s ---\n", i+1, doc.Filename, marker)
		if opts.Preview && len(doc.Content) > documentPreviewChars {
			builder.WriteString(doc.Content[:documentPreviewChars])
			builder.WriteString("...")
		} else {
			builder.WriteString(doc.Content)
		}
	}
	return builder.String(), nil
}

// rankByRelevance orders candidates by keyword overlap with the query and
// keeps the top limit. Documents that share no terms fall back to recency
// order, so an empty or unrelated query degrades to "most recent".
func rankByRelevance(candidates []Document, query string, limit int) []Document {
	if len(candidates) > limit && strings.TrimSpace(query) != "" {
		terms := keywordSet(query)
		if len(terms) > 0 {
			type scored struct {
				doc   Document
				score int
				order int
			}
			ranked := make([]scored, 0, len(candidates))
			anyHit := false
			for i, doc := range candidates {
				score := keywordOverlap(terms, doc)
				if score > 0 {
					anyHit = true
				}
				ranked = append(ranked, scored{doc: doc, score: score, order: i})
			}
			if anyHit {
				sort.SliceStable(ranked, func(i, j int) bool {
					if ranked[i].score != ranked[j].score {
						return ranked[i].score > ranked[j].score
					}
					return ranked[i].order < ranked[j].order
				})
				out := make([]Document, 0, limit)
				for _, item := range ranked[:limit] {
					out = append(out, item.doc)
				}
				return out
			}
		}
	}

	if len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

// keywordSet tokenizes a query into lowercase terms, dropping short words
// that would match everything.
func keywordSet(query string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(query))
	out := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		term := strings.Trim(field, ".,!?:;\"'()[]")
		if len(term) < 3 {
			continue
		}
		out[term] = struct{}{}
	}
	return out
}

// keywordOverlap counts query terms occurring in the filename or the head of
// the document body. Only the head is scanned so large documents do not
// dominate scoring by sheer size.
func keywordOverlap(terms map[string]struct{}, doc Document) int {
	head := doc.Content
	if len(head) > 4000 {
		head = head[:4000]
	}
	haystack := strings.ToLower(doc.Filename + "\n" + head)

	score := 0
	for term := range terms {
		if strings.Contains(haystack, term) {
			score++
		}
	}
	return score
}
