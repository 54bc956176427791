package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hearth/internal/logging"
)

// AnthropicClient is the concrete HTTP implementation of Client, grounded
// line-for-line on internal/perception/client_anthropic.go's
// CompleteWithTools: custom JSON request/response types, x-api-key and
// anthropic-version headers, and a bounded exponential-backoff retry loop.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

const (
	anthropicVersion = "2023-06-01"
	maxRetryAttempts = 3
	minBackoff       = 1 * time.Second
	maxBackoff       = 30 * time.Second
)

// NewAnthropicClient builds a client against the public Anthropic API.
// timeout bounds a single HTTP attempt, not the whole retry loop.
func NewAnthropicClient(apiKey string, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// anthropicMessage is the wire form of a Message. Anthropic messages carry
// a single text field for plain turns, or a block array for tool use and
// tool results; we always send blocks so one encoding path covers both.
type anthropicMessage struct {
	Role    string                `json:"role"`
	Content []anthropicContent    `json:"content"`
}

type anthropicContent struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system,omitempty"`
	Messages  []anthropicMessage  `json:"messages"`
	Tools     []anthropicTool     `json:"tools,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func toAnthropicMessages(messages []Message) []anthropicMessage {
	out := make([]anthropicMessage, len(messages))
	for i, m := range messages {
		blocks := make([]anthropicContent, 0, len(m.Content))
		for _, b := range m.Content {
			switch {
			case b.ToolUse != nil:
				blocks = append(blocks, anthropicContent{Type: "tool_use", ID: b.ToolUse.ID, Name: b.ToolUse.Name, Input: b.ToolUse.Input})
			case b.ToolResult != nil:
				blocks = append(blocks, anthropicContent{Type: "tool_result", ToolUseID: b.ToolResult.ToolUseID, Content: b.ToolResult.Content, IsError: b.ToolResult.IsError})
			default:
				blocks = append(blocks, anthropicContent{Type: "text", Text: b.Text})
			}
		}
		out[i] = anthropicMessage{Role: string(m.Role), Content: blocks}
	}
	return out
}

func toAnthropicTools(tools []ToolSchema) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicTool, len(tools))
	for i, t := range tools {
		out[i] = anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema}
	}
	return out
}

func fromAnthropicStopReason(s string) StopReason {
	switch s {
	case "end_turn", "stop_sequence":
		return StopEndTurn
	case "tool_use":
		return StopToolUse
	default:
		return StopOther
	}
}

// isRetryableStatus reports the transient conditions worth a retry:
// rate-limit and server error. Network timeouts are handled by the caller
// via the url.Error/context-deadline path, not by status code.
func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// backoff computes the exponential delay for retry attempt n (1-indexed),
// capped at maxBackoff ("exponential backoff 1→30s").
func backoff(attempt int) time.Duration {
	d := minBackoff << uint(attempt-1)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Complete implements Client. It retries up to maxRetryAttempts times on
// 429, 5xx, or a network-level error (which in practice is what a timed-out
// dial or read surfaces as), backing off exponentially between attempts.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	log := logging.Get(logging.CategoryProvider)
	start := time.Now()

	wireReq := anthropicRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  toAnthropicMessages(req.Messages),
		Tools:     toAnthropicTools(req.Tools),
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, retryable, err := c.attempt(ctx, wireReq)
		if err == nil {
			log.Debug("anthropic call completed in %v after %d attempt(s)", time.Since(start), attempt)
			return resp, nil
		}
		lastErr = err
		if !retryable {
			log.Warn("anthropic call failed non-retryably: %v", err)
			return nil, err
		}
		log.Warn("anthropic call attempt %d/%d failed, retrying: %v", attempt, maxRetryAttempts, err)
	}
	return nil, fmt.Errorf("provider: max retries exceeded: %w", lastErr)
}

// attempt performs a single HTTP round trip. retryable reports whether the
// failure is one of the transient conditions worth another attempt.
func (c *AnthropicClient) attempt(ctx context.Context, wireReq anthropicRequest) (*Response, bool, error) {
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, false, fmt.Errorf("provider: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("provider: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, true, fmt.Errorf("provider: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("provider: read response: %w", err)
	}

	if isRetryableStatus(resp.StatusCode) {
		return nil, true, fmt.Errorf("provider: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("provider: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var wireResp anthropicResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, false, fmt.Errorf("provider: parse response: %w", err)
	}
	if wireResp.Error != nil {
		return nil, false, fmt.Errorf("provider: api error: %s", wireResp.Error.Message)
	}

	blocks := make([]ContentBlock, 0, len(wireResp.Content))
	for _, b := range wireResp.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, ContentBlock{Text: b.Text})
		case "tool_use":
			blocks = append(blocks, ContentBlock{ToolUse: &ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input}})
		}
	}

	return &Response{
		StopReason: fromAnthropicStopReason(wireResp.StopReason),
		Content:    blocks,
		Usage:      Usage{InputTokens: wireResp.Usage.InputTokens, OutputTokens: wireResp.Usage.OutputTokens},
	}, nil
}
