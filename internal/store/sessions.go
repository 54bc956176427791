package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionForChat returns the durable session id mapped to an external chat
// identity, creating the mapping on first use. The mapping survives
// restarts
func (s *Store) SessionForChat(ctx context.Context, externalChatID string, newSessionID func() string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `SELECT session_id FROM chat_session_map WHERE external_chat_id = ?`, externalChatID).Scan(&sessionID)
	if err == nil {
		return sessionID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("session for chat: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sessionID = newSessionID()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO chat_session_map (external_chat_id, session_id) VALUES (?, ?)`,
		externalChatID, sessionID,
	)
	if err != nil {
		return "", fmt.Errorf("session for chat: create mapping: %w", err)
	}
	return sessionID, nil
}
