package tools

import (
	"context"
	"fmt"
	"sync"

	"hearth/internal/logging"
	"hearth/internal/safety"
)

// Registry holds every tool hearth knows how to call, and classifies each
// invocation against a fixed set of dispatch rules.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]*Definition
	headless bool
}

// New creates an empty Registry. headless marks an execution context with
// no interactive user available to confirm; it drives the CONFIRM→BLOCKED
// downgrade everywhere in this registry, not just for shell_execute.
func New(headless bool) *Registry {
	return &Registry{
		tools:    make(map[string]*Definition),
		headless: headless,
	}
}

// SetHeadless updates the headless flag, e.g. when a cron-driven run invokes
// the same registry a user-facing session also uses.
func (r *Registry) SetHeadless(headless bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headless = headless
}

// Register adds or replaces a tool definition by name (idempotent by name).
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := def
	r.tools[d.Name] = &d
	logging.Get(logging.CategoryTools).Info("registered tool %q (default tier %s)", d.Name, d.DefaultTier)
}

// Get returns the definition for name, if registered.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// Schemas exports name + description + input schema for every registered
// tool, consumed by the Agent Loop to forward to the model.
func (r *Registry) Schemas() []ExportedSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ExportedSchema, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, ExportedSchema{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.InputSchema,
		})
	}
	return out
}

// Classify returns the safety tier for invoking name with input, following
// the dispatch table exactly, then applying the headless downgrade.
func (r *Registry) Classify(name string, input map[string]interface{}) safety.Tier {
	r.mu.RLock()
	def, known := r.tools[name]
	headless := r.headless
	r.mu.RUnlock()

	tier := r.classifyUndowngraded(name, input, def, known)
	return safety.Downgrade(tier, headless)
}

func (r *Registry) classifyUndowngraded(name string, input map[string]interface{}, def *Definition, known bool) safety.Tier {
	if !known {
		return safety.BLOCKED
	}

	switch name {
	case "shell_execute":
		command, _ := input["command"].(string)
		return safety.Classify(command)
	case "file_write":
		return safety.CONFIRM
	case "cron_schedule":
		if action, _ := input["action"].(string); action == "list" {
			return safety.AUTO
		}
		return safety.CONFIRM
	default:
		return def.DefaultTier
	}
}

// ExecuteError wraps a handler failure that is not itself a safety
// violation.
type ExecuteError struct {
	Tool string
	Err  error
}

func (e *ExecuteError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Err)
}

func (e *ExecuteError) Unwrap() error { return e.Err }

// SafetyViolationError marks an error that must propagate unchanged rather
// than being wrapped as an ExecuteError.
type SafetyViolationError struct {
	Tool    string
	Message string
}

func (e *SafetyViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// Execute awaits name's handler with input. Blocked tools are never
// invoked; calling Execute on a BLOCKED invocation is a caller error, so
// Execute itself always runs the handler — tier enforcement happens in the
// Agent Loop's dispatch, which calls Classify first.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]interface{}) (string, error) {
	def, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	ctx, cancel := context.WithTimeout(ctx, def.effectiveTimeout())
	defer cancel()

	out, err := def.Handler(ctx, input)
	if err == nil {
		return out, nil
	}

	var sv *SafetyViolationError
	if asSafetyViolation(err, &sv) {
		return "", err
	}
	return "", &ExecuteError{Tool: name, Err: err}
}

func asSafetyViolation(err error, target **SafetyViolationError) bool {
	sv, ok := err.(*SafetyViolationError)
	if !ok {
		return false
	}
	*target = sv
	return true
}
