package store

import (
	"context"
	"fmt"
	"time"

	"hearth/internal/logging"
)

// ToolExecution mirrors the per-tool execution record. Previews are
// truncated by the caller (the Agent Loop) to their fixed length limits;
// the store persists whatever it is given.
type ToolExecution struct {
	SessionID      string
	ToolName       string
	InputPreview   string
	OutputPreview  string
	SafetyTier     string
	UserConfirmed  *bool
	Duration       time.Duration
}

// RecordToolExecution persists one tool-call record.
func (s *Store) RecordToolExecution(ctx context.Context, e ToolExecution) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var confirmed interface{}
	if e.UserConfirmed != nil {
		confirmed = *e.UserConfirmed
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_executions (session_id, tool_name, input_preview, output_preview, safety_tier, user_confirmed, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.ToolName, e.InputPreview, e.OutputPreview, e.SafetyTier, confirmed, e.Duration.Milliseconds(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("record tool execution %s failed: %v", e.ToolName, err)
		return fmt.Errorf("record tool execution: %w", err)
	}
	return nil
}
