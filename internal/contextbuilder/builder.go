package contextbuilder

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"hearth/internal/logging"
)

const (
	// systemFloorTokens and responseBufferTokens are fixed reservations that
	// the dynamic components never eat into.
	systemFloorTokens    = 800
	responseBufferTokens = 4096

	historyFetchCap        = 50
	memoryTopK             = 3
	profileConfidenceFloor = 0.5
	minHistoryTurns        = 4
)

const defaultSystemPrompt = "You are hearth, a personal autonomous agent. Be direct and concise. Use tools when they let you act rather than speculate, and say plainly when you don't know something."

// Builder composes a Prompt from the four dynamic sources, fetched
// concurrently and truncated to fit Budget tokens (default 20,000, see
// internal/config.MemoryConfig.ContextBudgetTokens).
type Builder struct {
	History HistoryProvider
	Summary SummaryProvider
	Memory  MemoryProvider
	Profile ProfileProvider

	// BaseSystemPrompt is prefixed to the composed system prompt. Defaults
	// to defaultSystemPrompt when empty.
	BaseSystemPrompt string

	// Budget is the total token budget (default 20,000).
	Budget int

	// SummarizeAtPct is the threshold should_summarize compares history
	// tokens against (default 0.80).
	SummarizeAtPct float64
}

// New builds a Builder with its default budget and summarization threshold;
// callers override Budget/SummarizeAtPct from internal/config.MemoryConfig
// as needed.
func New(history HistoryProvider, summary SummaryProvider, memory MemoryProvider, profile ProfileProvider) *Builder {
	return &Builder{
		History:        history,
		Summary:        summary,
		Memory:         memory,
		Profile:        profile,
		Budget:         20000,
		SummarizeAtPct: 0.80,
	}
}

type fetchResult struct {
	history  []Turn
	summary  string
	memories []string
	profile  []ProfileFact
}

// fetch runs all four component fetches concurrently via errgroup, with
// per-fetch error isolation: a failing fetch logs a warning and yields the
// absent component rather than aborting the whole build
func (b *Builder) fetch(ctx context.Context, sessionID, query string) fetchResult {
	log := logging.Get(logging.CategoryContextBuilder)
	var res fetchResult

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if b.History == nil {
			return nil
		}
		turns, err := b.History.RecentTurns(gctx, sessionID, historyFetchCap)
		if err != nil {
			log.Warn("history fetch failed, proceeding without it: %v", err)
			return nil
		}
		res.history = turns
		return nil
	})

	g.Go(func() error {
		if b.Summary == nil {
			return nil
		}
		text, ok, err := b.Summary.LatestSummary(gctx, sessionID)
		if err != nil {
			log.Warn("summary fetch failed, proceeding without it: %v", err)
			return nil
		}
		if ok {
			res.summary = text
		}
		return nil
	})

	g.Go(func() error {
		if b.Memory == nil || strings.TrimSpace(query) == "" {
			return nil
		}
		memories, err := b.Memory.Search(gctx, query, memoryTopK)
		if err != nil {
			log.Warn("memory fetch failed, proceeding without it: %v", err)
			return nil
		}
		res.memories = memories
		return nil
	})

	g.Go(func() error {
		if b.Profile == nil {
			return nil
		}
		facts, err := b.Profile.ProfileAboveConfidence(gctx, profileConfidenceFloor)
		if err != nil {
			log.Warn("profile fetch failed, proceeding without it: %v", err)
			return nil
		}
		res.profile = facts
		return nil
	})

	// Every goroutine above swallows its own error, so Wait can only
	// surface a context cancellation, which fetchResult already tolerates
	// by returning whatever arrived before cancellation.
	_ = g.Wait()
	return res
}

// Build composes a Prompt for sessionID, using query (typically the new
// user message) to drive the semantic-memory fetch.
func (b *Builder) Build(ctx context.Context, sessionID, query string) (*Prompt, error) {
	res := b.fetch(ctx, sessionID, query)

	available := b.Budget - systemFloorTokens - responseBufferTokens
	if available < 0 {
		available = 0
	}

	history := res.history
	summary := res.summary
	memories := res.memories
	profile := res.profile

	total := func() int {
		return estimateTurnsTokens(history) + estimateTokens(summary) + estimateMemoriesTokens(memories) + estimateProfileTokens(profile)
	}

	log := logging.Get(logging.CategoryContextBuilder)
	for total() > available {
		switch {
		case len(profile) > 0:
			log.Debug("truncation cascade: dropping profile digest")
			profile = nil
		case len(memories) > 1:
			log.Debug("truncation cascade: reducing memories to top result")
			memories = memories[:1]
		case summary != "" && len(history) > 0:
			log.Debug("truncation cascade: dropping session summary")
			summary = ""
		case len(history) > minHistoryTurns:
			log.Debug("truncation cascade: dropping oldest history turn")
			history = history[1:]
		default:
			// Nothing left to cut without violating the last-4-turns floor;
			// accept the overage rather than lose more context.
			log.Warn("context build exceeds available budget (%d > %d) after exhausting the truncation cascade", total(), available)
			return b.compose(history, summary, memories, profile), nil
		}
	}

	return b.compose(history, summary, memories, profile), nil
}

func (b *Builder) compose(history []Turn, summary string, memories []string, profile []ProfileFact) *Prompt {
	var sb strings.Builder
	base := b.BaseSystemPrompt
	if base == "" {
		base = defaultSystemPrompt
	}
	sb.WriteString(base)

	if summary != "" {
		sb.WriteString("\n\nSession summary so far:\n")
		sb.WriteString(summary)
	}

	if len(memories) > 0 {
		sb.WriteString("\n\nRelevant memories:\n")
		for _, m := range memories {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
	}

	if len(profile) > 0 {
		sb.WriteString("\nUser profile:\n")
		for _, f := range profile {
			sb.WriteString(fmt.Sprintf("- %s: %s (confidence %.2f)\n", f.Key, f.Value, f.Confidence))
		}
	}

	return &Prompt{SystemPrompt: sb.String(), History: history}
}

// ShouldSummarize reports whether history's estimated token count exceeds
// SummarizeAtPct of the available budget The transport
// layer is responsible for invoking the Summarizer when this fires.
func (b *Builder) ShouldSummarize(history []Turn) bool {
	available := b.Budget - systemFloorTokens - responseBufferTokens
	if available <= 0 {
		return false
	}
	return float64(estimateTurnsTokens(history)) > b.SummarizeAtPct*float64(available)
}
