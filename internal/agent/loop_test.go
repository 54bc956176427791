package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hearth/internal/provider"
	"hearth/internal/safety"
	"hearth/internal/tools"
)

type scriptedClient struct {
	responses []provider.Response
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	resp := c.responses[i]
	return &resp, nil
}

func errClient(err error) *erroringClient { return &erroringClient{err: err} }

type erroringClient struct{ err error }

func (c *erroringClient) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	return nil, c.err
}

func endTurn(text string, usage provider.Usage) provider.Response {
	return provider.Response{StopReason: provider.StopEndTurn, Content: []provider.ContentBlock{{Text: text}}, Usage: usage}
}

func toolUse(id, name string, input map[string]interface{}) provider.Response {
	return provider.Response{
		StopReason: provider.StopToolUse,
		Content:    []provider.ContentBlock{{ToolUse: &provider.ToolUseBlock{ID: id, Name: name, Input: input}}},
	}
}

func echoTool(name string, tier safety.Tier) tools.Definition {
	return tools.Definition{
		Name:        name,
		Description: "echoes its input",
		DefaultTier: tier,
		Handler: func(ctx context.Context, input map[string]interface{}) (string, error) {
			return "ok:" + name, nil
		},
	}
}

func TestRunReturnsTextOnImmediateEndTurn(t *testing.T) {
	client := &scriptedClient{responses: []provider.Response{endTurn("done", provider.Usage{InputTokens: 10, OutputTokens: 5})}}
	registry := tools.New(false)
	loop := New(client, registry, provider.DefaultPriceTable(), nil)

	result, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "hi"})
	require.NoError(t, err)
	require.Equal(t, "done", result.Text)
	require.Equal(t, 1, result.Iterations)
	require.Equal(t, provider.Usage{InputTokens: 10, OutputTokens: 5}, result.Usage)
}

func TestRunDispatchesAutoToolThenFinishes(t *testing.T) {
	registry := tools.New(false)
	registry.Register(echoTool("auto_tool", safety.AUTO))

	client := &scriptedClient{responses: []provider.Response{
		toolUse("tu_1", "auto_tool", map[string]interface{}{"x": 1}),
		endTurn("all done", provider.Usage{}),
	}}
	loop := New(client, registry, provider.DefaultPriceTable(), nil)

	result, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.NoError(t, err)
	require.Equal(t, "all done", result.Text)
	require.Equal(t, 2, result.Iterations)
	require.Equal(t, []string{"auto_tool"}, result.ToolsCalled)

	// The tool-result message should carry the echoed output.
	last := result.Messages[len(result.Messages)-2]
	require.Equal(t, provider.RoleUser, last.Role)
	require.Contains(t, last.Content[0].ToolResult.Content, "ok:auto_tool")
}

func TestRunBlocksUnknownTool(t *testing.T) {
	registry := tools.New(false)
	client := &scriptedClient{responses: []provider.Response{
		toolUse("tu_1", "nonexistent", map[string]interface{}{}),
		endTurn("fine", provider.Usage{}),
	}}
	loop := New(client, registry, provider.DefaultPriceTable(), nil)

	result, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.NoError(t, err)
	require.Equal(t, "fine", result.Text)
}

func TestRunConfirmApprovedExecutesTool(t *testing.T) {
	registry := tools.New(false)
	registry.Register(echoTool("confirm_tool", safety.CONFIRM))

	client := &scriptedClient{responses: []provider.Response{
		toolUse("tu_1", "confirm_tool", map[string]interface{}{}),
		endTurn("done", provider.Usage{}),
	}}
	confirm := func(ctx context.Context, toolName, preview string) bool { return true }
	loop := New(client, registry, provider.DefaultPriceTable(), confirm)

	result, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.NoError(t, err)
	last := result.Messages[len(result.Messages)-2]
	require.Contains(t, last.Content[0].ToolResult.Content, "ok:confirm_tool")
}

func TestRunConfirmRefusedCancelsTool(t *testing.T) {
	registry := tools.New(false)
	registry.Register(echoTool("confirm_tool", safety.CONFIRM))

	client := &scriptedClient{responses: []provider.Response{
		toolUse("tu_1", "confirm_tool", map[string]interface{}{}),
		endTurn("done", provider.Usage{}),
	}}
	confirm := func(ctx context.Context, toolName, preview string) bool { return false }
	loop := New(client, registry, provider.DefaultPriceTable(), confirm)

	result, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.NoError(t, err)
	last := result.Messages[len(result.Messages)-2]
	require.Contains(t, last.Content[0].ToolResult.Content, "cancelled")
}

func TestRunNilConfirmCancelsConfirmTierTool(t *testing.T) {
	registry := tools.New(false)
	registry.Register(echoTool("confirm_tool", safety.CONFIRM))

	client := &scriptedClient{responses: []provider.Response{
		toolUse("tu_1", "confirm_tool", map[string]interface{}{}),
		endTurn("done", provider.Usage{}),
	}}
	loop := New(client, registry, provider.DefaultPriceTable(), nil)

	result, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.NoError(t, err)
	last := result.Messages[len(result.Messages)-2]
	require.Contains(t, last.Content[0].ToolResult.Content, "cancelled")
}

func TestRunFailsWithMaxIterationsWhenLoopNeverEndsTurn(t *testing.T) {
	registry := tools.New(false)
	registry.Register(echoTool("auto_tool", safety.AUTO))

	resp := toolUse("tu_1", "auto_tool", map[string]interface{}{})
	client := &scriptedClient{responses: []provider.Response{resp}}
	loop := New(client, registry, provider.DefaultPriceTable(), nil)

	_, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.Error(t, err)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, ErrMaxIterations, runErr.Kind)
}

func TestRunFailsWithContextOverflow(t *testing.T) {
	registry := tools.New(false)
	big := provider.Usage{InputTokens: 60_000, OutputTokens: 60_000}
	client := &scriptedClient{responses: []provider.Response{
		endTurn("partial", big),
		endTurn("never reached", provider.Usage{}),
	}}
	// Force a second model call by using tool_use on the first response instead.
	client.responses[0] = toolUse("tu_1", "auto_tool", map[string]interface{}{})
	client.responses[0].Usage = big
	registry.Register(echoTool("auto_tool", safety.AUTO))

	loop := New(client, registry, provider.DefaultPriceTable(), nil)
	_, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.Error(t, err)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, ErrContextOverflow, runErr.Kind)
}

func TestRunWrapsProviderErrorAsProviderTransient(t *testing.T) {
	registry := tools.New(false)
	loop := New(errClient(context.DeadlineExceeded), registry, provider.DefaultPriceTable(), nil)

	_, err := loop.Run(context.Background(), Request{Model: "m", UserMessage: "go"})
	require.Error(t, err)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Equal(t, ErrProviderTransient, runErr.Kind)
}

func TestTruncateToolOutputCapsLength(t *testing.T) {
	long := make([]byte, MaxToolOutputChars+500)
	for i := range long {
		long[i] = 'x'
	}
	out := truncateToolOutput(string(long))
	require.LessOrEqual(t, len(out), MaxToolOutputChars+len("\n...[truncated]"))
	require.Contains(t, out, "[truncated]")
}

func TestToolPreviewTruncatesTo80Chars(t *testing.T) {
	input := map[string]interface{}{"command": "this is a very long shell command that definitely exceeds eighty characters in length"}
	p := toolPreview(input)
	require.LessOrEqual(t, len(p), 80)
}
