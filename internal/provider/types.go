// Package provider implements the chat-completion contract the Agent Loop
// and Summarizer drive models through: a request carrying model, system
// prompt, message history and tool schemas, and a response carrying a stop
// reason, content blocks, and token usage. Grounded on
// internal/perception/client_anthropic.go and client_tool_helpers.go.
package provider

import "context"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason is the three-way outcome of a model call.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
	StopOther   StopReason = "other"
)

// ContentBlock is one piece of a message: text, a tool invocation requested
// by the model, or a tool result being fed back to it. Exactly one of the
// fields is populated, mirroring the Anthropic content-block union.
type ContentBlock struct {
	Text       string          `json:"text,omitempty"`
	ToolUse    *ToolUseBlock   `json:"tool_use,omitempty"`
	ToolResult *ToolResultBlock `json:"tool_result,omitempty"`
}

// ToolUseBlock is a tool invocation requested by the model, grounded on
// ToolCall (internal/types/interfaces.go, mapped in client_tool_helpers.go).
type ToolUseBlock struct {
	ID    string                 `json:"id"`
	Name  string                 `json:"name"`
	Input map[string]interface{} `json:"input"`
}

// ToolResultBlock carries a tool's output back to the model, keyed to the
// ToolUseBlock.ID that requested it.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// TextMessage builds a single-text-block message, the common case.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Text: text}}}
}

// ToolSchema describes one callable tool for the model, mirroring
// ToolDefinition.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Usage reports token consumption for one model call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Request is one chat-completion call.
type Request struct {
	Model     string
	System    string
	Messages  []Message
	Tools     []ToolSchema
	MaxTokens int
}

// Response is the result of one chat-completion call.
type Response struct {
	StopReason StopReason
	Content    []ContentBlock
	Usage      Usage
}

// Text concatenates every text block in the response, the extract_text(resp)
// step of the Agent Loop.
func (r Response) Text() string {
	var out string
	for _, b := range r.Content {
		out += b.Text
	}
	return out
}

// ToolUses returns every tool_use block in the response, in order.
func (r Response) ToolUses() []ToolUseBlock {
	var out []ToolUseBlock
	for _, b := range r.Content {
		if b.ToolUse != nil {
			out = append(out, *b.ToolUse)
		}
	}
	return out
}

// Client is the chat-completion contract the Agent Loop and Summarizer
// drive models through. Implementations own their own retry policy for
// transient failures.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
