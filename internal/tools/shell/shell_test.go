package shell

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hearth/internal/tools"
)

func TestExecuteCapturesStdoutAndExitCode(t *testing.T) {
	out, err := Execute(context.Background(), map[string]interface{}{"command": "echo hello"})
	require.NoError(t, err)
	require.Contains(t, out, "exit_code: 0")
	require.Contains(t, out, "hello")
}

func TestExecuteCapturesNonZeroExitCode(t *testing.T) {
	out, err := Execute(context.Background(), map[string]interface{}{"command": "exit 3"})
	require.NoError(t, err)
	require.Contains(t, out, "exit_code: 3")
}

func TestExecuteRejectsOverlongCommand(t *testing.T) {
	long := strings.Repeat("a", MaxCommandLength+1)
	_, err := Execute(context.Background(), map[string]interface{}{"command": long})
	require.Error(t, err)

	var sv *tools.SafetyViolationError
	require.ErrorAs(t, err, &sv)
}

func TestExecuteRequiresCommand(t *testing.T) {
	_, err := Execute(context.Background(), map[string]interface{}{})
	require.Error(t, err)
}

func TestExecuteKillsOnTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	out, err := Execute(ctx, map[string]interface{}{"command": "sleep 5"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Contains(t, out, "TIMEOUT")
	require.Less(t, elapsed, 2*time.Second, "subprocess should have been killed promptly, not left to finish sleep 5")
}

func TestExecuteTruncatesLargeOutput(t *testing.T) {
	out, err := Execute(context.Background(), map[string]interface{}{"command": "yes x | head -c 20000"})
	require.NoError(t, err)
	require.Contains(t, out, "truncated: true")
	require.Contains(t, out, "[truncated]")
}
