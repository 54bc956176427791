package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/logging"
)

// ProfileEntry mirrors the User Profile Entry.
type ProfileEntry struct {
	Key        string
	Value      string
	Confidence float64
	UpdatedAt  time.Time
}

// decayAmount and decayThreshold implement the monthly decay invariant:
// entries older than 30 days lose 0.05 confidence; entries that fall below
// 0.1 are deleted.
const (
	decayAmount    = 0.05
	decayThreshold = 0.1
	decayAge       = 30 * 24 * time.Hour
	noOpMargin     = 0.1
)

// UpsertProfile writes key=value with the given confidence. Per the
// confidence invariant, a write whose new confidence is no more than 0.1
// above the existing entry's confidence is a no-op — this keeps a single
// low-confidence observation from repeatedly overwriting an already-settled
// fact.
func (s *Store) UpsertProfile(ctx context.Context, key, value string, confidence float64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var existing float64
	err := s.db.QueryRowContext(ctx, `SELECT confidence FROM profile_entries WHERE key = ?`, key).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		// no existing entry, proceed to insert
	case err != nil:
		return fmt.Errorf("upsert profile: read existing: %w", err)
	case confidence <= existing+noOpMargin:
		logging.Get(logging.CategoryStore).Debug("profile upsert for %q is a no-op (new=%.2f existing=%.2f)", key, confidence, existing)
		return nil
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profile_entries (key, value, confidence, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, confidence=excluded.confidence, updated_at=excluded.updated_at`,
		key, value, confidence, s.now(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// ProfileAboveConfidence returns profile entries with confidence >= min, in
// descending confidence order
func (s *Store) ProfileAboveConfidence(ctx context.Context, min float64) ([]ProfileEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, confidence, updated_at FROM profile_entries WHERE confidence >= ? ORDER BY confidence DESC`,
		min,
	)
	if err != nil {
		return nil, fmt.Errorf("profile above confidence: %w", err)
	}
	defer rows.Close()

	var entries []ProfileEntry
	for rows.Next() {
		var e ProfileEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.Confidence, &e.UpdatedAt); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DecayProfile applies the monthly decay pass: entries older than 30 days
// lose 0.05 confidence, and entries that fall below 0.1 are deleted.
func (s *Store) DecayProfile(ctx context.Context) (decayed, deleted int, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cutoff := s.now().Add(-decayAge)

	res, err := s.db.ExecContext(ctx,
		`UPDATE profile_entries SET confidence = confidence - ? WHERE updated_at <= ?`,
		decayAmount, cutoff,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("decay profile: %w", err)
	}
	affected, _ := res.RowsAffected()

	del, err := s.db.ExecContext(ctx, `DELETE FROM profile_entries WHERE confidence < ?`, decayThreshold)
	if err != nil {
		return int(affected), 0, fmt.Errorf("decay profile: purge: %w", err)
	}
	deletedCount, _ := del.RowsAffected()

	logging.Get(logging.CategoryStore).Info("profile decay: %d entries decayed, %d deleted", affected, deletedCount)
	return int(affected), int(deletedCount), nil
}

// StoreFact implements tools/memory.Storer: a free-text fact written with a
// fixed moderate confidence, keyed by its own content so repeated facts
// collapse rather than accumulate duplicate rows.
func (s *Store) StoreFact(ctx context.Context, value string) error {
	return s.UpsertProfile(ctx, factKey(value), value, 0.6)
}

func factKey(value string) string {
	const maxKeyLen = 64
	if len(value) <= maxKeyLen {
		return "fact:" + value
	}
	return "fact:" + value[:maxKeyLen]
}
