package store

import (
	"context"
	"fmt"
	"time"

	"hearth/internal/logging"
)

const (
	turnRetention  = 90 * 24 * time.Hour
	traceRetention = 30 * 24 * time.Hour
)

// CleanupStats reports what a daily maintenance pass removed.
type CleanupStats struct {
	TurnsDeleted  int
	TracesDeleted int
}

// DailyCleanup purges turns older than 90 days and traces older than 30
// days. It is idempotent: running it twice in a row with no
// new data deletes nothing the second time.
func (s *Store) DailyCleanup(ctx context.Context) (CleanupStats, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.now()
	var stats CleanupStats

	turnsRes, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE created_at <= ?`, now.Add(-turnRetention))
	if err != nil {
		return stats, fmt.Errorf("daily cleanup: turns: %w", err)
	}
	n, _ := turnsRes.RowsAffected()
	stats.TurnsDeleted = int(n)

	tracesRes, err := s.db.ExecContext(ctx, `DELETE FROM traces WHERE created_at <= ?`, now.Add(-traceRetention))
	if err != nil {
		return stats, fmt.Errorf("daily cleanup: traces: %w", err)
	}
	n, _ = tracesRes.RowsAffected()
	stats.TracesDeleted = int(n)

	logging.Get(logging.CategoryStore).Info("daily cleanup: %d turns, %d traces deleted", stats.TurnsDeleted, stats.TracesDeleted)
	return stats, nil
}
