package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/logging"
)

const (
	minSummaryLen = 50
	maxSummaryLen = 800
)

// SessionSummary mirrors the Session Summary entity.
type SessionSummary struct {
	ID          int64
	SessionID   string
	SummaryText string
	GeneratedAt time.Time
}

// SaveSummary persists a session summary. Only summaries within [50, 800]
// characters are persisted; anything outside that range is
// silently refused rather than erroring, since the Summarizer already
// retries internally before calling this.
func (s *Store) SaveSummary(ctx context.Context, sessionID, text string) error {
	if len(text) < minSummaryLen || len(text) > maxSummaryLen {
		logging.Get(logging.CategoryStore).Warn("refusing to save summary for %s: length %d outside [%d,%d]", sessionID, len(text), minSummaryLen, maxSummaryLen)
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_summaries (session_id, summary_text, generated_at) VALUES (?, ?, ?)`,
		sessionID, text, s.now(),
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// LatestSummary returns the most recently generated summary for a session,
// the session's single "current" summary
func (s *Store) LatestSummary(ctx context.Context, sessionID string) (SessionSummary, bool, error) {
	var sm SessionSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, summary_text, generated_at FROM session_summaries
		 WHERE session_id = ? ORDER BY generated_at DESC, id DESC LIMIT 1`,
		sessionID,
	).Scan(&sm.ID, &sm.SessionID, &sm.SummaryText, &sm.GeneratedAt)
	if err == sql.ErrNoRows {
		return SessionSummary{}, false, nil
	}
	if err != nil {
		return SessionSummary{}, false, fmt.Errorf("latest summary: %w", err)
	}
	return sm, true, nil
}
