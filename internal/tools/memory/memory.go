// Package memory implements the memory_search and memory_store tool
// contracts: bounded query/value lengths and a credential-pattern screen
// on anything the model tries to persist, so a model cannot be tricked
// into writing secrets into durable memory.
package memory

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"hearth/internal/tools"
)

const (
	minQueryLen = 3
	maxQueryLen = 200
	maxValueLen = 2000
)

// Searcher is satisfied by the Semantic Retriever; memory_search never talks
// to storage directly so this package stays testable without a database.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Storer is satisfied by the Memory Store's durable-fact path.
type Storer interface {
	StoreFact(ctx context.Context, value string) error
}

// credentialPatterns flags values that look like secrets rather than facts
// worth remembering, so memory_store refuses to persist them.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[A-Za-z0-9]{16,}`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)\b(password|passwd|api[_-]?key|secret|token)\s*[:=]\s*\S+`),
}

func looksLikeCredential(value string) (string, bool) {
	for _, re := range credentialPatterns {
		if re.MatchString(value) {
			return re.String(), true
		}
	}
	return "", false
}

// Handler binds memory_search and memory_store to concrete Searcher/Storer
// implementations.
type Handler struct {
	Searcher Searcher
	Storer   Storer
}

// New builds a Handler over the given Searcher and Storer.
func New(searcher Searcher, storer Storer) *Handler {
	return &Handler{Searcher: searcher, Storer: storer}
}

// Search runs memory_search.
func (h *Handler) Search(ctx context.Context, input map[string]interface{}) (string, error) {
	query, _ := input["query"].(string)
	if len(query) < minQueryLen || len(query) > maxQueryLen {
		return "", fmt.Errorf("memory_search: query must be between %d and %d characters, got %d", minQueryLen, maxQueryLen, len(query))
	}

	results, err := h.Searcher.Search(ctx, query, 5)
	if err != nil {
		// Retrieval failures never fail the calling tool turn; the model
		// proceeds without the extra context, per the Semantic Retriever's
		// own empty-result-on-failure contract.
		return "no relevant memories found", nil
	}
	if len(results) == 0 {
		return "no relevant memories found", nil
	}

	out := ""
	for i, r := range results {
		out += fmt.Sprintf("%d. %s\n", i+1, r)
	}
	return out, nil
}

// Store runs memory_store.
func (h *Handler) Store(ctx context.Context, input map[string]interface{}) (string, error) {
	value, _ := input["value"].(string)
	if value == "" {
		return "", fmt.Errorf("memory_store: value is required")
	}
	if len(value) > maxValueLen {
		return "", fmt.Errorf("memory_store: value length %d exceeds maximum of %d characters", len(value), maxValueLen)
	}
	if pattern, found := looksLikeCredential(value); found {
		return "", &tools.SafetyViolationError{
			Tool:    "memory_store",
			Message: fmt.Sprintf("value matches a credential-like pattern (%s) and was not stored", pattern),
		}
	}

	if err := h.Storer.StoreFact(ctx, value); err != nil {
		return "", fmt.Errorf("memory_store: %w", err)
	}
	return "stored", nil
}

// Definitions returns the registry Definitions for memory_search and
// memory_store.
func (h *Handler) Definitions() []tools.Definition {
	return []tools.Definition{
		{
			Name:        "memory_search",
			Description: "Searches durable memory for facts relevant to a query.",
			InputSchema: tools.Schema{
				Type:       "object",
				Properties: map[string]tools.Property{"query": {Type: "string"}},
				Required:   []string{"query"},
			},
			Timeout: 5 * time.Second,
			Handler: h.Search,
		},
		{
			Name:        "memory_store",
			Description: "Persists a fact to durable memory for later recall.",
			InputSchema: tools.Schema{
				Type:       "object",
				Properties: map[string]tools.Property{"value": {Type: "string"}},
				Required:   []string{"value"},
			},
			Timeout: 5 * time.Second,
			Handler: h.Store,
		},
	}
}
