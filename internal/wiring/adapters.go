package wiring

import (
	"context"

	"hearth/internal/contextbuilder"
	"hearth/internal/store"
)

var (
	_ contextbuilder.HistoryProvider = (*historyAdapter)(nil)
	_ contextbuilder.SummaryProvider = (*summaryAdapter)(nil)
	_ contextbuilder.ProfileProvider = (*profileAdapter)(nil)
)

// historyAdapter implements contextbuilder.HistoryProvider over the Memory
// Store, narrowing store.Turn down to the Context Builder's own Turn shape.
type historyAdapter struct {
	store *store.Store
}

func (a *historyAdapter) RecentTurns(ctx context.Context, sessionID string, n int) ([]contextbuilder.Turn, error) {
	turns, err := a.store.RecentTurns(ctx, sessionID, n)
	if err != nil {
		return nil, err
	}
	out := make([]contextbuilder.Turn, len(turns))
	for i, t := range turns {
		out[i] = contextbuilder.Turn{Role: t.Role, Content: t.Content}
	}
	return out, nil
}

// summaryAdapter implements contextbuilder.SummaryProvider over the Memory
// Store's single "current" session summary.
type summaryAdapter struct {
	store *store.Store
}

func (a *summaryAdapter) LatestSummary(ctx context.Context, sessionID string) (string, bool, error) {
	sm, ok, err := a.store.LatestSummary(ctx, sessionID)
	if err != nil || !ok {
		return "", ok, err
	}
	return sm.SummaryText, true, nil
}

// profileAdapter implements contextbuilder.ProfileProvider over the Memory
// Store's user-profile table.
type profileAdapter struct {
	store *store.Store
}

func (a *profileAdapter) ProfileAboveConfidence(ctx context.Context, min float64) ([]contextbuilder.ProfileFact, error) {
	entries, err := a.store.ProfileAboveConfidence(ctx, min)
	if err != nil {
		return nil, err
	}
	out := make([]contextbuilder.ProfileFact, len(entries))
	for i, e := range entries {
		out[i] = contextbuilder.ProfileFact{Key: e.Key, Value: e.Value, Confidence: e.Confidence}
	}
	return out, nil
}
