package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hearth.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := newTestStore(t)
	_, err := s.RecentTurns(context.Background(), "session-1", 10)
	require.NoError(t, err)
}

func TestAppendAndFetchRecentTurnsInChronologicalOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, content := range []string{"first", "second", "third"} {
		_, err := s.AppendTurn(ctx, Turn{SessionID: "s1", Role: "user", Content: content, Tokens: i})
		require.NoError(t, err)
	}

	turns, err := s.RecentTurns(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, "first", turns[0].Content)
	require.Equal(t, "third", turns[2].Content)
}

func TestRecentTurnsLimitsToNMostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.AppendTurn(ctx, Turn{SessionID: "s1", Role: "user", Content: "x"})
		require.NoError(t, err)
	}

	turns, err := s.RecentTurns(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
}

func TestSaveTraceIsIdempotentByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trace := Trace{TraceID: "t1", SessionID: "s1", Iterations: 1, ToolsCalled: []string{"shell_execute"}, Success: true}
	require.NoError(t, s.SaveTrace(ctx, trace))

	trace.Iterations = 5
	trace.Success = false
	trace.ErrorMessage = "boom"
	require.NoError(t, s.SaveTrace(ctx, trace))

	got, err := s.FetchTrace(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 5, got.Iterations)
	require.False(t, got.Success)
	require.Equal(t, "boom", got.ErrorMessage)
	require.Equal(t, []string{"shell_execute"}, got.ToolsCalled)
}

func TestProfileUpsertNoOpInvariant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfile(ctx, "likes", "dark mode", 0.5))

	// New confidence (0.55) is within existing+0.1 (0.6), so this is a no-op:
	// the value must not change.
	require.NoError(t, s.UpsertProfile(ctx, "likes", "light mode", 0.55))

	entries, err := s.ProfileAboveConfidence(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dark mode", entries[0].Value)
	require.Equal(t, 0.5, entries[0].Confidence)
}

func TestProfileUpsertAppliesWhenConfidenceJumpsEnough(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfile(ctx, "likes", "dark mode", 0.3))
	require.NoError(t, s.UpsertProfile(ctx, "likes", "light mode", 0.5))

	entries, err := s.ProfileAboveConfidence(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "light mode", entries[0].Value)
	require.Equal(t, 0.5, entries[0].Confidence)
}

func TestProfileAboveConfidenceOrdersDescending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfile(ctx, "a", "va", 0.9))
	require.NoError(t, s.UpsertProfile(ctx, "b", "vb", 0.3))
	require.NoError(t, s.UpsertProfile(ctx, "c", "vc", 0.6))

	entries, err := s.ProfileAboveConfidence(ctx, 0.5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a", entries[0].Key)
	require.Equal(t, "c", entries[1].Key)
}

func TestDecayProfileDecaysOldEntriesAndDeletesBelowThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixedNow }

	require.NoError(t, s.UpsertProfile(ctx, "old-strong", "x", 0.5))
	require.NoError(t, s.UpsertProfile(ctx, "old-weak", "y", 0.12))

	s.now = func() time.Time { return fixedNow.Add(31 * 24 * time.Hour) }
	decayed, deleted, err := s.DecayProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, decayed)
	require.Equal(t, 1, deleted)

	entries, err := s.ProfileAboveConfidence(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "old-strong", entries[0].Key)
	require.InDelta(t, 0.45, entries[0].Confidence, 0.001)
}

func TestSaveSummaryRejectsOutOfRangeLength(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSummary(ctx, "s1", "too short"))
	_, ok, err := s.LatestSummary(ctx, "s1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveAndFetchLatestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	valid := "The user asked about deployment steps and confirmed they prefer blue-green over canary releases for this service."
	require.True(t, len(valid) >= 50 && len(valid) <= 800)
	require.NoError(t, s.SaveSummary(ctx, "s1", valid))

	sm, ok, err := s.LatestSummary(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, valid, sm.SummaryText)
}

func TestSessionForChatCreatesThenReusesMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	calls := 0
	newID := func() string { calls++; return "generated-session" }

	first, err := s.SessionForChat(ctx, "chat-42", newID)
	require.NoError(t, err)
	require.Equal(t, "generated-session", first)

	second, err := s.SessionForChat(ctx, "chat-42", newID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls, "newSessionID must only be called once per external chat id")
}

func TestDailyCleanupPurgesOldTurnsAndTraces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixedNow.Add(-100 * 24 * time.Hour) }
	_, err := s.AppendTurn(ctx, Turn{SessionID: "s1", Role: "user", Content: "ancient"})
	require.NoError(t, err)
	require.NoError(t, s.SaveTrace(ctx, Trace{TraceID: "old-trace", SessionID: "s1"}))

	// Backdate created_at directly since AppendTurn/SaveTrace use
	// CURRENT_TIMESTAMP rather than s.now() for the row timestamp.
	_, err = s.db.ExecContext(ctx, `UPDATE turns SET created_at = ? WHERE session_id = 's1'`, fixedNow.Add(-100*24*time.Hour))
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE traces SET created_at = ? WHERE trace_id = 'old-trace'`, fixedNow.Add(-40*24*time.Hour))
	require.NoError(t, err)

	s.now = func() time.Time { return fixedNow }
	stats, err := s.DailyCleanup(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.TurnsDeleted)
	require.Equal(t, 1, stats.TracesDeleted)

	stats2, err := s.DailyCleanup(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, stats2.TurnsDeleted)
	require.Equal(t, 0, stats2.TracesDeleted)
}

func TestCronJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, "*/10 * * * *", "summarize inbox")
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)

	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	require.NoError(t, s.DeleteJob(ctx, job.ID))

	jobs, err = s.ListJobs(ctx)
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestDeleteJobUnknownIDErrors(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteJob(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestStoreFactPersistsAsProfileEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.StoreFact(ctx, "user prefers dark mode"))

	entries, err := s.ProfileAboveConfidence(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "user prefers dark mode", entries[0].Value)
}
