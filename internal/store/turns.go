package store

import (
	"context"
	"database/sql"
	"fmt"

	"hearth/internal/logging"
)

// Turn mirrors the Conversation Turn entity.
type Turn struct {
	ID        int64
	SessionID string
	Role      string // "user", "assistant", or "tool"
	Content   string
	Tokens    int
	Model     string
	CreatedAt string
}

// AppendTurn appends a turn to a session. Turns are append-only; chronological
// retrieval is by insertion order.
func (s *Store) AppendTurn(ctx context.Context, t Turn) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, role, content, tokens, model) VALUES (?, ?, ?, ?, ?)`,
		t.SessionID, t.Role, t.Content, t.Tokens, t.Model,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("append turn failed for session %s: %v", t.SessionID, err)
		return 0, fmt.Errorf("append turn: %w", err)
	}
	return res.LastInsertId()
}

// RecentTurns returns the most recent n turns for a session in chronological
// order (oldest first), matching the Context Builder's consumption order.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, tokens, model, created_at
		 FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()

	var reversed []Turn
	for rows.Next() {
		var t Turn
		var tokens sql.NullInt64
		var model sql.NullString
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content, &tokens, &model, &t.CreatedAt); err != nil {
			continue
		}
		t.Tokens = int(tokens.Int64)
		t.Model = model.String
		reversed = append(reversed, t)
	}

	turns := make([]Turn, len(reversed))
	for i, t := range reversed {
		turns[len(reversed)-1-i] = t
	}
	return turns, nil
}
