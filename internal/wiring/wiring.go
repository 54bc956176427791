// Package wiring assembles the concrete Runtime: the Memory Store, the
// Semantic Retriever, the Tool Registry with every handler registered, the
// Agent Loop, the Context Builder, the Summarizer and the Scheduler, all
// built from one internal/config.Config. It is also where the
// persistence-ordering guarantees live: RunTurn persists the user turn
// before the Loop runs, and persists the trace, tool-execution rows and
// assistant turn only after the Loop finishes, success or failure, before
// handing a response back to any caller.
package wiring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hearth/internal/agent"
	"hearth/internal/config"
	"hearth/internal/contextbuilder"
	"hearth/internal/embedding"
	"hearth/internal/logging"
	"hearth/internal/provider"
	"hearth/internal/retrieval"
	"hearth/internal/scheduler"
	"hearth/internal/store"
	"hearth/internal/summarizer"
	"hearth/internal/tools"
	"hearth/internal/tools/cron"
	"hearth/internal/tools/file"
	"hearth/internal/tools/memory"
	"hearth/internal/tools/shell"
	"hearth/internal/tools/system"
	"hearth/internal/tools/web"
)

// summaryHistoryDepth bounds how many recent turns the Summarizer is handed,
// matching the Context Builder's own history-fetch cap.
const summaryHistoryDepth = 50

// providerTimeout bounds a single chat-completion HTTP attempt.
const providerTimeout = 60 * time.Second

var _ scheduler.Runner = (*Runtime)(nil)

// Runtime holds every object a transport (cmd/hearthd) needs to run
// sessions, fire scheduled jobs, and resolve confirmations.
type Runtime struct {
	Config        *config.Config
	Store         *store.Store
	Retriever     *retrieval.Retriever
	Provider      provider.Client
	Registry      *tools.Registry
	Loop          *agent.Loop
	ContextBuilder *contextbuilder.Builder
	Summarizer    *summarizer.Summarizer
	Scheduler     *scheduler.Scheduler
	Confirmations *agent.ConfirmationRegistry
}

// Build constructs a Runtime from cfg. confirm is handed to the Agent Loop
// verbatim; pass nil for a headless process (the Registry's own headless
// downgrade means it is never actually invoked in that case). A transport
// that lets a user answer a CONFIRM-tier call asynchronously should build
// its confirm func around the returned Runtime's Confirmations registry.
func Build(ctx context.Context, cfg *config.Config, confirm agent.ConfirmFunc) (*Runtime, error) {
	log := logging.Get(logging.CategoryWiring)

	st, err := store.Open(cfg.Memory.SQLiteDB)
	if err != nil {
		return nil, fmt.Errorf("wiring: open store: %w", err)
	}

	embedder, err := embedding.NewGenAIClient(ctx, cfg.Secrets.ProviderAPIKey, "")
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("wiring: build embedder: %w", err)
	}

	index, err := retrieval.NewSQLiteVecIndex(st.DB(), embedder.Dimensions())
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("wiring: build vector index: %w", err)
	}
	retriever := retrieval.New(embedder, index)

	registry := tools.New(cfg.Agent.Headless)
	if err := registerTools(registry, cfg, st, retriever); err != nil {
		st.Close()
		return nil, err
	}

	providerClient := provider.NewAnthropicClient(cfg.Secrets.ProviderAPIKey, providerTimeout)
	confirmations := agent.NewConfirmationRegistry()
	loop := agent.New(providerClient, registry, provider.DefaultPriceTable(), confirm)

	cb := contextbuilder.New(&historyAdapter{st}, &summaryAdapter{st}, retriever, &profileAdapter{st})
	cb.Budget = cfg.Memory.ContextBudgetTokens
	cb.SummarizeAtPct = cfg.Memory.SummarizeAtPct

	rt := &Runtime{
		Config:         cfg,
		Store:          st,
		Retriever:      retriever,
		Provider:       providerClient,
		Registry:       registry,
		Loop:           loop,
		ContextBuilder: cb,
		Summarizer:     summarizer.New(providerClient, cfg.Agent.HaikuModel),
		Confirmations:  confirmations,
	}
	rt.Scheduler = scheduler.New(st, scheduler.NewParser(), rt, scheduler.TickInterval)

	log.Info("runtime built: headless=%v model=%s", cfg.Agent.Headless, cfg.Agent.Model)
	return rt, nil
}

// registerTools wires every tool handler into registry: sandboxed file
// operations, shell execution, guarded web fetch,
// host status, durable memory, and cron scheduling.
func registerTools(registry *tools.Registry, cfg *config.Config, st *store.Store, retriever *retrieval.Retriever) error {
	fileHandler, err := file.New(cfg.Agent.SandboxRoot)
	if err != nil {
		return fmt.Errorf("wiring: build file handler: %w", err)
	}
	for _, def := range fileHandler.Definitions() {
		registry.Register(def)
	}

	registry.Register(shell.Definition())
	registry.Register(web.New().Definition())
	registry.Register(system.New().Definition())

	memHandler := memory.New(retriever, st)
	for _, def := range memHandler.Definitions() {
		registry.Register(def)
	}

	cronHandler := cron.New(st, scheduler.NewParser())
	registry.Register(cronHandler.Definition())
	return nil
}

// Close releases every resource Build acquired, in reverse order.
func (rt *Runtime) Close() error {
	log := logging.Get(logging.CategoryWiring)
	rt.Scheduler.Stop()
	if err := rt.Retriever.Close(5 * time.Second); err != nil {
		log.Warn("retriever close: %v", err)
	}
	return rt.Store.Close()
}

// HandleMessage resolves an external chat identity to a durable session and
// runs one turn against it.
func (rt *Runtime) HandleMessage(ctx context.Context, externalChatID, text string) (string, error) {
	sessionID, err := rt.Store.SessionForChat(ctx, externalChatID, uuid.NewString)
	if err != nil {
		return "", fmt.Errorf("wiring: resolve session: %w", err)
	}
	return rt.RunTurn(ctx, sessionID, text)
}

// RunInstruction implements scheduler.Runner: a scheduled job re-invokes
// the Agent Loop under its own synthetic, headless session.
func (rt *Runtime) RunInstruction(ctx context.Context, sessionID, instruction string) error {
	_, err := rt.RunTurn(ctx, sessionID, instruction)
	return err
}

// RunTurn executes one session-turn under a fixed persistence ordering: the
// user turn is durable before the Loop is invoked; the trace
// and every tool-execution row are persisted as soon as the Loop returns,
// regardless of outcome; the assistant turn is persisted last, and only on
// success; no response reaches the caller before all of that has happened.
func (rt *Runtime) RunTurn(ctx context.Context, sessionID, userMessage string) (string, error) {
	log := logging.Get(logging.CategoryWiring)

	if _, err := rt.Store.AppendTurn(ctx, store.Turn{SessionID: sessionID, Role: "user", Content: userMessage}); err != nil {
		return "", agent.NewRunError(agent.ErrPersistence, fmt.Errorf("persist user turn: %w", err))
	}

	prompt, err := rt.ContextBuilder.Build(ctx, sessionID, userMessage)
	if err != nil {
		return "", agent.NewRunError(agent.ErrPersistence, fmt.Errorf("build context: %w", err))
	}

	traceID := uuid.NewString()
	start := time.Now()

	result, runErr := rt.Loop.Run(ctx, agent.Request{
		Model:        rt.Config.Agent.Model,
		SystemPrompt: prompt.SystemPrompt,
		History:      toProviderHistory(prompt.History),
		UserMessage:  userMessage,
		Tools:        toProviderSchemas(rt.Registry.Schemas()),
		MaxTokens:    rt.Config.Agent.MaxTokens,
	})

	trace := store.Trace{TraceID: traceID, SessionID: sessionID, Duration: time.Since(start)}
	var responseText string
	if runErr != nil {
		trace.Success = false
		trace.ErrorMessage = runErr.Error()
		log.Warn("turn %s (session %s) failed: %v", traceID, sessionID, runErr)
	} else {
		trace.Success = true
		trace.TotalInputTokens = result.Usage.InputTokens
		trace.TotalOutputTokens = result.Usage.OutputTokens
		trace.CostUSD = result.CostUSD
		trace.Iterations = result.Iterations
		trace.ToolsCalled = result.ToolsCalled
		responseText = result.Text

		for _, tc := range result.ToolCalls {
			exec := store.ToolExecution{
				SessionID:     sessionID,
				ToolName:      tc.ToolName,
				InputPreview:  tc.InputPreview,
				OutputPreview: tc.OutputPreview,
				SafetyTier:    tc.SafetyTier.String(),
				UserConfirmed: tc.UserConfirmed,
				Duration:      tc.Duration,
			}
			if err := rt.Store.RecordToolExecution(ctx, exec); err != nil {
				log.Warn("record tool execution for trace %s: %v", traceID, err)
			}
		}
	}

	if err := rt.Store.SaveTrace(ctx, trace); err != nil {
		log.Warn("save trace %s: %v", traceID, err)
	}

	if runErr != nil {
		return "", runErr
	}

	if _, err := rt.Store.AppendTurn(ctx, store.Turn{SessionID: sessionID, Role: "assistant", Content: responseText, Model: rt.Config.Agent.Model}); err != nil {
		return "", agent.NewRunError(agent.ErrPersistence, fmt.Errorf("persist assistant turn: %w", err))
	}

	rt.Retriever.IndexTurn(fmt.Sprintf("%s:%s:assistant", sessionID, traceID), responseText)
	rt.maybeSummarize(ctx, sessionID, prompt.History)

	return responseText, nil
}

// maybeSummarize runs the Summarizer against the session's recent turns
// when the Context Builder reports the history component is crowding its
// share of the budget. A failed or declined summarization is non-fatal:
// the next turn simply composes its prompt from raw history instead.
func (rt *Runtime) maybeSummarize(ctx context.Context, sessionID string, history []contextbuilder.Turn) {
	if !rt.ContextBuilder.ShouldSummarize(history) {
		return
	}
	log := logging.Get(logging.CategoryWiring)

	turns, err := rt.Store.RecentTurns(ctx, sessionID, summaryHistoryDepth)
	if err != nil {
		log.Warn("summarize: fetch recent turns for %s: %v", sessionID, err)
		return
	}

	summaryTurns := make([]summarizer.Turn, len(turns))
	for i, t := range turns {
		summaryTurns[i] = summarizer.Turn{Role: t.Role, Content: t.Content}
	}

	text, ok := rt.Summarizer.Summarize(ctx, summaryTurns)
	if !ok {
		return
	}
	if err := rt.Store.SaveSummary(ctx, sessionID, text); err != nil {
		log.Warn("summarize: save summary for %s: %v", sessionID, err)
	}
}

func toProviderHistory(history []contextbuilder.Turn) []provider.Message {
	messages := make([]provider.Message, len(history))
	for i, t := range history {
		role := provider.RoleUser
		if t.Role == "assistant" {
			role = provider.RoleAssistant
		}
		messages[i] = provider.TextMessage(role, t.Content)
	}
	return messages
}

// toProviderSchemas converts the Registry's exported schemas into the
// provider package's wire shape, round-tripping InputSchema through JSON
// since tools.Schema is a typed struct and provider.ToolSchema carries it
// as a raw map for direct marshaling into the completion request.
func toProviderSchemas(schemas []tools.ExportedSchema) []provider.ToolSchema {
	out := make([]provider.ToolSchema, 0, len(schemas))
	for _, s := range schemas {
		raw, err := json.Marshal(s.InputSchema)
		if err != nil {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		out = append(out, provider.ToolSchema{Name: s.Name, Description: s.Description, InputSchema: m})
	}
	return out
}
