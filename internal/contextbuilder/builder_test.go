package contextbuilder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	turns []Turn
	err   error
}

func (f *fakeHistory) RecentTurns(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.turns) > n {
		return f.turns[len(f.turns)-n:], nil
	}
	return f.turns, nil
}

type fakeSummary struct {
	text string
	ok   bool
	err  error
}

func (f *fakeSummary) LatestSummary(ctx context.Context, sessionID string) (string, bool, error) {
	return f.text, f.ok, f.err
}

type fakeMemory struct {
	results []string
	err     error
}

func (f *fakeMemory) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > limit {
		return f.results[:limit], nil
	}
	return f.results, nil
}

type fakeProfile struct {
	facts []ProfileFact
	err   error
}

func (f *fakeProfile) ProfileAboveConfidence(ctx context.Context, min float64) ([]ProfileFact, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

func TestBuildComposesAllComponentsWithinBudget(t *testing.T) {
	b := New(
		&fakeHistory{turns: []Turn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}},
		&fakeSummary{text: "user asked about weather", ok: true},
		&fakeMemory{results: []string{"likes go", "prefers terse answers"}},
		&fakeProfile{facts: []ProfileFact{{Key: "name", Value: "Sam", Confidence: 0.9}}},
	)

	prompt, err := b.Build(context.Background(), "session-1", "what's the weather")
	require.NoError(t, err)
	require.Contains(t, prompt.SystemPrompt, "user asked about weather")
	require.Contains(t, prompt.SystemPrompt, "likes go")
	require.Contains(t, prompt.SystemPrompt, "name: Sam")
	require.Len(t, prompt.History, 2)
}

func TestBuildIsolatesComponentFailures(t *testing.T) {
	b := New(
		&fakeHistory{turns: []Turn{{Role: "user", Content: "hi"}}},
		&fakeSummary{err: errors.New("summary store down")},
		&fakeMemory{err: errors.New("index down")},
		&fakeProfile{err: errors.New("profile store down")},
	)

	prompt, err := b.Build(context.Background(), "session-1", "query")
	require.NoError(t, err)
	require.Len(t, prompt.History, 1)
	require.NotContains(t, prompt.SystemPrompt, "Session summary")
	require.NotContains(t, prompt.SystemPrompt, "Relevant memories")
	require.NotContains(t, prompt.SystemPrompt, "User profile")
}

func TestBuildCascadeDropsProfileFirst(t *testing.T) {
	b := New(
		&fakeHistory{turns: []Turn{{Role: "user", Content: strings.Repeat("a", 1000)}, {Role: "assistant", Content: strings.Repeat("b", 1000)}}},
		&fakeSummary{},
		&fakeMemory{},
		&fakeProfile{facts: []ProfileFact{{Key: "k", Value: strings.Repeat("v", 5000), Confidence: 0.9}}},
	)
	b.Budget = systemFloorTokens + responseBufferTokens + 600

	prompt, err := b.Build(context.Background(), "session-1", "")
	require.NoError(t, err)
	require.NotContains(t, prompt.SystemPrompt, "User profile")
}

func TestBuildCascadeNeverDropsBelowFourTurns(t *testing.T) {
	turns := make([]Turn, 0, 10)
	for i := 0; i < 10; i++ {
		turns = append(turns, Turn{Role: "user", Content: strings.Repeat("x", 2000)})
	}
	b := New(&fakeHistory{turns: turns}, &fakeSummary{}, &fakeMemory{}, &fakeProfile{})
	b.Budget = systemFloorTokens + responseBufferTokens + 100

	prompt, err := b.Build(context.Background(), "session-1", "")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(prompt.History), minHistoryTurns)
}

func TestShouldSummarizeTrueWhenHistoryExceedsThreshold(t *testing.T) {
	b := New(nil, nil, nil, nil)
	b.Budget = systemFloorTokens + responseBufferTokens + 1000
	b.SummarizeAtPct = 0.5

	history := []Turn{{Role: "user", Content: strings.Repeat("x", 4000)}}
	require.True(t, b.ShouldSummarize(history))
}

func TestShouldSummarizeFalseWhenHistorySmall(t *testing.T) {
	b := New(nil, nil, nil, nil)
	b.Budget = 20000

	history := []Turn{{Role: "user", Content: "short"}}
	require.False(t, b.ShouldSummarize(history))
}

func TestBuildHandlesNilSources(t *testing.T) {
	b := New(nil, nil, nil, nil)
	prompt, err := b.Build(context.Background(), "session-1", "query")
	require.NoError(t, err)
	require.Empty(t, prompt.History)
	require.Contains(t, prompt.SystemPrompt, defaultSystemPrompt)
}
