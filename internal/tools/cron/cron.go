// Package cron implements the cron_schedule tool contract: job creation
// validates its cron expression, screens the job's instruction text for
// destructive intent, and enforces a five-minute minimum fire interval so
// a model cannot schedule a tight polling loop.
package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hearth/internal/tools"
)

// MinInterval is the shortest allowed gap between two fires of a job.
const MinInterval = 5 * time.Minute

// destructiveSubstrings are screened, case-insensitively, against a job's
// instruction text at creation time. This is a coarse substring screen, not
// the full safety classifier — a scheduled job's instruction is free text
// handed to the Agent Loop later, where the classifier runs again on
// whatever tool calls it actually produces.
var destructiveSubstrings = []string{
	"rm ", "kill ", "sudo ", "delete ", "remove ", "format ", "drop ",
}

func hasDestructiveIntent(instruction string) (string, bool) {
	lower := strings.ToLower(instruction)
	for _, s := range destructiveSubstrings {
		if strings.Contains(lower, s) {
			return s, true
		}
	}
	return "", false
}

// Job is the persisted shape of a scheduled job, mirrored from
// internal/store.
type Job struct {
	ID          string
	Expression  string
	Instruction string
	NextRun     time.Time
}

// Store is satisfied by the Memory Store's cron persistence.
type Store interface {
	CreateJob(ctx context.Context, expression, instruction string) (Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
	DeleteJob(ctx context.Context, id string) error
}

// ExpressionParser validates a 5-field cron expression and reports the
// shortest interval it can fire at. Implemented over a concrete cron
// expression parser at the wiring layer.
type ExpressionParser interface {
	Validate(expression string) error
	MinInterval(expression string) (time.Duration, error)
}

// Handler binds cron_schedule to a Store and ExpressionParser.
type Handler struct {
	Store  Store
	Parser ExpressionParser
}

// New builds a Handler.
func New(store Store, parser ExpressionParser) *Handler {
	return &Handler{Store: store, Parser: parser}
}

// Execute runs cron_schedule for action in {"create", "list", "delete"}.
func (h *Handler) Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	action, _ := input["action"].(string)
	switch action {
	case "list":
		return h.list(ctx)
	case "create":
		return h.create(ctx, input)
	case "delete":
		return h.delete(ctx, input)
	default:
		return "", fmt.Errorf("cron_schedule: unknown action %q (expected create, list or delete)", action)
	}
}

func (h *Handler) list(ctx context.Context) (string, error) {
	jobs, err := h.Store.ListJobs(ctx)
	if err != nil {
		return "", fmt.Errorf("cron_schedule: %w", err)
	}
	if len(jobs) == 0 {
		return "no scheduled jobs", nil
	}
	out := ""
	for _, j := range jobs {
		out += fmt.Sprintf("%s: %q next at %s (%s)\n", j.ID, j.Instruction, j.NextRun.Format(time.RFC3339), j.Expression)
	}
	return out, nil
}

func (h *Handler) create(ctx context.Context, input map[string]interface{}) (string, error) {
	expression, _ := input["expression"].(string)
	instruction, _ := input["instruction"].(string)

	if expression == "" || instruction == "" {
		return "", fmt.Errorf("cron_schedule: expression and instruction are required")
	}
	if err := h.Parser.Validate(expression); err != nil {
		return "", fmt.Errorf("cron_schedule: invalid expression: %w", err)
	}
	interval, err := h.Parser.MinInterval(expression)
	if err != nil {
		return "", fmt.Errorf("cron_schedule: %w", err)
	}
	if interval < MinInterval {
		return "", &tools.SafetyViolationError{
			Tool:    "cron_schedule",
			Message: fmt.Sprintf("expression %q fires more often than the %s minimum interval", expression, MinInterval),
		}
	}
	if substr, found := hasDestructiveIntent(instruction); found {
		return "", &tools.SafetyViolationError{
			Tool:    "cron_schedule",
			Message: fmt.Sprintf("instruction contains destructive-intent phrase %q", strings.TrimSpace(substr)),
		}
	}

	job, err := h.Store.CreateJob(ctx, expression, instruction)
	if err != nil {
		return "", fmt.Errorf("cron_schedule: %w", err)
	}
	return fmt.Sprintf("created job %s, next at %s", job.ID, job.NextRun.Format(time.RFC3339)), nil
}

func (h *Handler) delete(ctx context.Context, input map[string]interface{}) (string, error) {
	id, _ := input["id"].(string)
	if id == "" {
		return "", fmt.Errorf("cron_schedule: id is required")
	}
	if err := h.Store.DeleteJob(ctx, id); err != nil {
		return "", fmt.Errorf("cron_schedule: %w", err)
	}
	return fmt.Sprintf("deleted job %s", id), nil
}

// Definition returns the registry Definition for cron_schedule. The
// Registry's own dispatch table already classifies
// action="list" as AUTO and everything else as CONFIRM, so DefaultTier here
// is never consulted.
func (h *Handler) Definition() tools.Definition {
	return tools.Definition{
		Name:        "cron_schedule",
		Description: "Creates, lists or deletes scheduled jobs that re-invoke the agent on a cron expression.",
		InputSchema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.Property{
				"action":      {Type: "string", Enum: []string{"create", "list", "delete"}},
				"expression":  {Type: "string", Description: "5-field cron expression, required for action=create."},
				"instruction": {Type: "string", Description: "What the agent should do when the job fires, required for action=create."},
				"id":          {Type: "string", Description: "Job id, required for action=delete."},
			},
			Required: []string{"action"},
		},
		Timeout: 5 * time.Second,
		Handler: h.Execute,
	}
}
