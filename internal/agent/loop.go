// Package agent implements the Agent Loop: the bounded, timeout-governed
// reason-and-act cycle that drives a chat-completion model through tool
// calls to a final response. Grounded on the state-machine shape of
// internal/session/executor.go (Executor.Process: observe, generate a
// response, walk tool calls, append to history) and the retry/tool-call
// mapping in internal/perception/client_anthropic.go and
// client_tool_helpers.go, reworked to this loop's own semantics (iteration/
// token/time ceilings, parallel AUTO dispatch, sequential CONFIRM/BLOCKED,
// confirmation timeout).
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"hearth/internal/logging"
	"hearth/internal/provider"
	"hearth/internal/safety"
	"hearth/internal/tools"
)

// ConfirmFunc is the confirmation callback contract: given a tool name
// and a command preview truncated to 80 characters, it
// returns whether a human approved the call. The Loop bounds every call to
// this func by ConfirmationTimeout itself, regardless of how long the
// callback actually takes to answer, so a stalled transport can never hang
// a session-turn past its budget.
type ConfirmFunc func(ctx context.Context, toolName, preview string) bool

// Loop drives one session-turn. Built once per session (or once per
// process, for a headless/cron invocation) and reused across turns.
type Loop struct {
	Provider provider.Client
	Tools    *tools.Registry
	Prices   provider.PriceTable
	Confirm  ConfirmFunc
}

// New builds a Loop. confirm may be nil for a headless context — the
// Registry's own headless downgrade already turns CONFIRM into BLOCKED in
// that case, so a nil Confirm is never actually invoked from a properly
// configured headless registry.
func New(client provider.Client, registry *tools.Registry, prices provider.PriceTable, confirm ConfirmFunc) *Loop {
	return &Loop{Provider: client, Tools: registry, Prices: prices, Confirm: confirm}
}

// Request is one session-turn's input.
type Request struct {
	Model        string
	SystemPrompt string
	History      []provider.Message
	UserMessage  string
	Tools        []provider.ToolSchema
	MaxTokens    int
}

// Result is one session-turn's output, including everything the trace
// record needs for cost accounting.
type Result struct {
	Text        string
	Messages    []provider.Message
	Usage       provider.Usage
	CostUSD     float64
	Iterations  int
	ToolsCalled []string
	ToolCalls   []ToolCallRecord
}

// ToolCallRecord is one invocation's audit trail, matching the Tool
// Execution entity (sanitized_input_preview ≤100 chars,
// output_preview ≤500 chars, safety_tier, user_confirmed, duration). The
// wiring layer persists these via internal/store.RecordToolExecution.
type ToolCallRecord struct {
	ToolName      string
	InputPreview  string
	OutputPreview string
	SafetyTier    safety.Tier
	UserConfirmed *bool
	Duration      time.Duration
}

// Run executes the bounded reason-and-act cycle.
func (l *Loop) Run(ctx context.Context, req Request) (*Result, error) {
	log := logging.Get(logging.CategoryAgent)
	start := time.Now()

	messages := make([]provider.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, provider.TextMessage(provider.RoleUser, req.UserMessage))

	var usage provider.Usage
	var toolsCalled []string
	var toolCalls []ToolCallRecord
	iterations := 0

	for {
		if iterations >= MaxIterations {
			return nil, NewRunError(ErrMaxIterations, fmt.Errorf("exceeded %d iterations", MaxIterations))
		}
		elapsed := time.Since(start)
		if elapsed >= SessionTurnTimeout {
			return nil, NewRunError(ErrTimeout, fmt.Errorf("session turn exceeded %s", SessionTurnTimeout))
		}
		if usage.InputTokens+usage.OutputTokens >= MaxSessionTokens {
			return nil, NewRunError(ErrContextOverflow, fmt.Errorf("exceeded %d total tokens", MaxSessionTokens))
		}

		callCtx, cancel := context.WithTimeout(ctx, SessionTurnTimeout-elapsed)
		resp, err := l.Provider.Complete(callCtx, provider.Request{
			Model:     req.Model,
			System:    req.SystemPrompt,
			Messages:  messages,
			Tools:     req.Tools,
			MaxTokens: req.MaxTokens,
		})
		cancel()
		if err != nil {
			return nil, NewRunError(ErrProviderTransient, err)
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		messages = append(messages, provider.Message{Role: provider.RoleAssistant, Content: resp.Content})
		iterations++

		switch resp.StopReason {
		case provider.StopEndTurn:
			return l.finish(resp.Text(), messages, usage, iterations, toolsCalled, toolCalls, req.Model), nil
		case provider.StopToolUse:
			uses := resp.ToolUses()
			for _, u := range uses {
				toolsCalled = append(toolsCalled, u.Name)
			}
			results, records := l.handleTools(ctx, uses)
			toolCalls = append(toolCalls, records...)
			messages = append(messages, provider.Message{Role: provider.RoleUser, Content: results})
			log.Debug("iteration %d: dispatched %d tool call(s)", iterations, len(uses))
			continue
		default:
			return l.finish(resp.Text(), messages, usage, iterations, toolsCalled, toolCalls, req.Model), nil
		}
	}
}

func (l *Loop) finish(text string, messages []provider.Message, usage provider.Usage, iterations int, toolsCalled []string, toolCalls []ToolCallRecord, model string) *Result {
	cost := 0.0
	if l.Prices != nil {
		cost = l.Prices.Cost(model, usage)
	}
	return &Result{
		Text:        text,
		Messages:    messages,
		Usage:       usage,
		CostUSD:     cost,
		Iterations:  iterations,
		ToolsCalled: toolsCalled,
		ToolCalls:   toolCalls,
	}
}

// handleTools implements handle_tools: AUTO-tier calls from
// the same response run in parallel; CONFIRM and BLOCKED run sequentially,
// in the original order. Results keep the same order as calls and carry a
// stable link back to their ToolUseBlock.ID. The second return value is
// one ToolCallRecord per call, for the wiring layer to persist as Tool
// Execution rows.
func (l *Loop) handleTools(ctx context.Context, calls []provider.ToolUseBlock) ([]provider.ContentBlock, []ToolCallRecord) {
	log := logging.Get(logging.CategoryAgent)
	tiers := make([]safety.Tier, len(calls))
	for i, c := range calls {
		tiers[i] = l.Tools.Classify(c.Name, c.Input)
	}

	results := make([]string, len(calls))
	records := make([]ToolCallRecord, len(calls))
	for i, c := range calls {
		records[i] = ToolCallRecord{ToolName: c.Name, InputPreview: truncate(toolPreview(c.Input), 100), SafetyTier: tiers[i]}
	}

	var wg sync.WaitGroup
	for i, c := range calls {
		if tiers[i] != safety.AUTO {
			continue
		}
		wg.Add(1)
		go func(i int, c provider.ToolUseBlock) {
			defer wg.Done()
			start := time.Now()
			results[i] = l.runTool(ctx, c)
			records[i].Duration = time.Since(start)
		}(i, c)
	}
	wg.Wait()

	for i, c := range calls {
		switch tiers[i] {
		case safety.AUTO:
			// already executed above
		case safety.BLOCKED:
			results[i] = fmt.Sprintf("blocked: tool %q is not permitted in this context", c.Name)
			log.Warn("blocked tool call %q", c.Name)
		case safety.CONFIRM:
			start := time.Now()
			approved := l.awaitConfirmation(ctx, c)
			records[i].UserConfirmed = &approved
			if approved {
				results[i] = l.runTool(ctx, c)
			} else {
				results[i] = fmt.Sprintf("cancelled: confirmation for tool %q was refused or timed out", c.Name)
			}
			records[i].Duration = time.Since(start)
		}
		records[i].OutputPreview = truncate(results[i], 500)
	}

	blocks := make([]provider.ContentBlock, len(calls))
	for i, c := range calls {
		blocks[i] = provider.ContentBlock{ToolResult: &provider.ToolResultBlock{
			ToolUseID: c.ID,
			Content:   truncateToolOutput(results[i]),
		}}
	}
	return blocks, records
}

// runTool executes one tool call against the Registry. Registry.Execute
// already bounds the handler by its own timeout (defaulting to
// tools.DefaultTimeout, which matches ToolTimeout); a failure here becomes
// this tool's textual result rather than aborting the turn: on timeout,
// return a textual error as that tool's result and let the loop continue.
func (l *Loop) runTool(ctx context.Context, c provider.ToolUseBlock) string {
	out, err := l.Tools.Execute(ctx, c.Name, c.Input)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return out
}

// awaitConfirmation bounds the confirmation callback by ConfirmationTimeout
// itself, so a callback that never answers cannot stall the session-turn
// past its own 300s budget.
func (l *Loop) awaitConfirmation(ctx context.Context, c provider.ToolUseBlock) bool {
	if l.Confirm == nil {
		return false
	}
	confirmCtx, cancel := context.WithTimeout(ctx, ConfirmationTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		done <- l.Confirm(confirmCtx, c.Name, toolPreview(c.Input))
	}()

	select {
	case approved := <-done:
		return approved
	case <-confirmCtx.Done():
		return false
	}
}

// toolPreview renders an invocation's arguments, truncated to 80 characters
//'s confirmation contract.
func toolPreview(input map[string]interface{}) string {
	b, err := json.Marshal(input)
	if err != nil {
		return "(unavailable)"
	}
	s := string(b)
	if len(s) > 80 {
		return s[:80]
	}
	return s
}

// truncateToolOutput caps a tool's result text at MaxToolOutputChars with a
// trailing marker
func truncateToolOutput(s string) string {
	if len(s) <= MaxToolOutputChars {
		return s
	}
	return s[:MaxToolOutputChars] + "\n...[truncated]"
}

// truncate caps s at n characters, for the Tool Execution entity's
// sanitized_input_preview (100) and output_preview (500) limits.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
