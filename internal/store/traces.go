package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hearth/internal/logging"
)

// Trace mirrors the per-turn execution record, written once at turn
// completion even on failure.
type Trace struct {
	TraceID           string
	SessionID         string
	Duration          time.Duration
	TotalInputTokens  int
	TotalOutputTokens int
	CostUSD           float64
	Iterations        int
	ToolsCalled       []string
	Success           bool
	ErrorMessage      string
}

// SaveTrace persists a trace, idempotent by trace id: a
// second save with the same id replaces the first rather than erroring or
// duplicating.
func (s *Store) SaveTrace(ctx context.Context, t Trace) error {
	toolsJSON, err := json.Marshal(t.ToolsCalled)
	if err != nil {
		return fmt.Errorf("save trace: marshal tools_called: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO traces (trace_id, session_id, duration_ms, total_input_tokens, total_output_tokens, cost_usd, iterations, tools_called, success, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(trace_id) DO UPDATE SET
			session_id=excluded.session_id, duration_ms=excluded.duration_ms,
			total_input_tokens=excluded.total_input_tokens, total_output_tokens=excluded.total_output_tokens,
			cost_usd=excluded.cost_usd, iterations=excluded.iterations, tools_called=excluded.tools_called,
			success=excluded.success, error_message=excluded.error_message`,
		t.TraceID, t.SessionID, t.Duration.Milliseconds(), t.TotalInputTokens, t.TotalOutputTokens,
		t.CostUSD, t.Iterations, string(toolsJSON), t.Success, nullIfEmpty(t.ErrorMessage),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("save trace %s failed: %v", t.TraceID, err)
		return fmt.Errorf("save trace: %w", err)
	}
	return nil
}

// FetchTrace retrieves a trace by id.
func (s *Store) FetchTrace(ctx context.Context, traceID string) (Trace, error) {
	var t Trace
	var durationMs int64
	var toolsJSON string
	var errMsg sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT trace_id, session_id, duration_ms, total_input_tokens, total_output_tokens, cost_usd, iterations, tools_called, success, error_message
		 FROM traces WHERE trace_id = ?`,
		traceID,
	).Scan(&t.TraceID, &t.SessionID, &durationMs, &t.TotalInputTokens, &t.TotalOutputTokens,
		&t.CostUSD, &t.Iterations, &toolsJSON, &t.Success, &errMsg)
	if err != nil {
		return Trace{}, fmt.Errorf("fetch trace %s: %w", traceID, err)
	}

	t.Duration = time.Duration(durationMs) * time.Millisecond
	t.ErrorMessage = errMsg.String
	_ = json.Unmarshal([]byte(toolsJSON), &t.ToolsCalled)
	return t, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
