// Package contextbuilder composes the bounded, priority-ordered prompt the
// Agent Loop hands to the model: conversation history, session summary,
// semantic memories and user-profile digest, fetched concurrently and
// truncated down to a fixed token budget when they don't all fit. Grounded
// on internal/context/tokens.go (chars/4 token estimate, reserve-based
// budgeting) and internal/context/compressor.go (priority-ordered
// component assembly).
package contextbuilder

import "context"

// Turn is one conversation turn as the Context Builder sees it — just
// enough to render into a message, decoupled from the Memory Store's
// richer Turn record.
type Turn struct {
	Role    string
	Content string
}

// ProfileFact is one user-profile entry above the confidence floor.
type ProfileFact struct {
	Key        string
	Value      string
	Confidence float64
}

// HistoryProvider fetches recent conversation turns for a session, newest
// request returning them in chronological order.
type HistoryProvider interface {
	RecentTurns(ctx context.Context, sessionID string, n int) ([]Turn, error)
}

// SummaryProvider fetches the latest session summary, if one exists.
type SummaryProvider interface {
	LatestSummary(ctx context.Context, sessionID string) (text string, ok bool, err error)
}

// MemoryProvider performs the Semantic Retriever's text-only search.
type MemoryProvider interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// ProfileProvider fetches profile entries at or above a confidence floor.
type ProfileProvider interface {
	ProfileAboveConfidence(ctx context.Context, min float64) ([]ProfileFact, error)
}

// Prompt is the composed result: history becomes the message list the
// Agent Loop appends the user turn to; everything else is folded into the
// system prompt text.
type Prompt struct {
	SystemPrompt string
	History      []Turn
}
