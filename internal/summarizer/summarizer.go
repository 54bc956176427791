// Package summarizer produces short session summaries from recent turns
// using a cheap model, so the Context Builder can fold a durable summary
// into the prompt instead of an ever-growing history. Grounded on the
// cheap-model selection pattern in internal/embedding/task_selector.go
// (pick a lighter-weight call for a subordinate task) and the completion
// contract of internal/perception/client.go, driven here through
// hearth/internal/provider instead of a bespoke HTTP client.
package summarizer

import (
	"context"
	"strings"

	"hearth/internal/logging"
	"hearth/internal/provider"
)

const (
	maxInputChars = 4000
	minOutputLen  = 50
	maxOutputLen  = 800
	maxRetries    = 2
	maxTokens     = 300
)

const systemPrompt = "Summarize the conversation below in 2 to 4 sentences. Be factual and concise. Do not add commentary or headers."

// Turn is the minimal shape the Summarizer needs from a conversation turn,
// decoupled from internal/store.Turn the way tools/memory and
// contextbuilder decouple from their concrete collaborators.
type Turn struct {
	Role    string
	Content string
}

// Summarizer produces session summaries via a Provider client configured
// with a cheap model (internal/config.AgentConfig.HaikuModel).
type Summarizer struct {
	Client provider.Client
	Model  string
}

// New builds a Summarizer against client using model for every call.
func New(client provider.Client, model string) *Summarizer {
	return &Summarizer{Client: client, Model: model}
}

func formatTurns(turns []Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncateInput(s string) string {
	if len(s) <= maxInputChars {
		return s
	}
	return s[:maxInputChars]
}

// Summarize attempts to produce a 2-4 sentence summary of turns. Failures
// return nothing rather than an error: the caller proceeds without a new
// summary.
func (s *Summarizer) Summarize(ctx context.Context, turns []Turn) (string, bool) {
	log := logging.Get(logging.CategorySummarizer)

	input := truncateInput(formatTurns(turns))
	if strings.TrimSpace(input) == "" {
		return "", false
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := s.Client.Complete(ctx, provider.Request{
			Model:     s.Model,
			System:    systemPrompt,
			Messages:  []provider.Message{provider.TextMessage(provider.RoleUser, input)},
			MaxTokens: maxTokens,
		})
		if err != nil {
			log.Warn("summarizer call failed on attempt %d/%d: %v", attempt+1, maxRetries+1, err)
			continue
		}

		out := strings.TrimSpace(resp.Text())
		if len(out) >= minOutputLen && len(out) <= maxOutputLen {
			return out, true
		}
		log.Warn("summarizer output length %d outside [%d,%d] on attempt %d/%d", len(out), minOutputLen, maxOutputLen, attempt+1, maxRetries+1)
	}

	log.Warn("summarizer exhausted retries, caller proceeds without a new summary")
	return "", false
}
