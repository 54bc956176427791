// Package shell implements the shell_execute tool contract: bounded
// command length, captured stdout/stderr/exit code, and a subprocess that
// is killed (not merely abandoned) on timeout.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"hearth/internal/logging"
	"hearth/internal/tools"
)

// MaxCommandLength is the hard ceiling on an incoming command string.
const MaxCommandLength = 500

// MaxOutputChars truncates captured output before it reaches the model,
// matching the Agent Loop's own 10,000-character tool-result ceiling
// so the shell tool never relies on the loop to do it.
const MaxOutputChars = 10000

// Definition returns the registry Definition for shell_execute. confirm is
// invoked by the Agent Loop, not here; this package only executes commands
// it is handed — tiering happens in the Tool Registry before Execute is
// ever called.
func Definition() tools.Definition {
	return tools.Definition{
		Name:        "shell_execute",
		Description: "Runs a shell command on the local host and returns its stdout, stderr, exit code and duration.",
		InputSchema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.Property{
				"command": {Type: "string", Description: "The shell command to execute."},
			},
			Required: []string{"command"},
		},
		Timeout: 30 * time.Second,
		Handler: Execute,
	}
}

// Execute runs the command named in input["command"] and returns a
// human-readable report of the result.
func Execute(ctx context.Context, input map[string]interface{}) (string, error) {
	command, _ := input["command"].(string)
	if command == "" {
		return "", fmt.Errorf("shell_execute: command is required")
	}
	if len(command) > MaxCommandLength {
		return "", &tools.SafetyViolationError{
			Tool:    "shell_execute",
			Message: fmt.Sprintf("command length %d exceeds maximum of %d characters", len(command), MaxCommandLength),
		}
	}

	log := logging.Get(logging.CategoryTools)
	start := time.Now()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	timedOut := ctx.Err() == context.DeadlineExceeded
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if !timedOut {
			log.Warn("shell_execute: command failed to start: %v", err)
			return "", fmt.Errorf("shell_execute: %w", err)
		}
	}

	outTruncated := stdout.Len() > MaxOutputChars
	errTruncated := stderr.Len() > MaxOutputChars
	outText := truncate(stdout.String(), MaxOutputChars)
	errText := truncate(stderr.String(), MaxOutputChars)

	if timedOut {
		log.Warn("shell_execute: command timed out after %s and was killed: %s", duration, preview(command))
		return fmt.Sprintf(
			"TIMEOUT after %s — process killed.\nstdout:\n%s\nstderr:\n%s",
			duration, outText, errText,
		), nil
	}

	log.Info("shell_execute: exit=%d duration=%s command=%s", exitCode, duration, preview(command))

	return fmt.Sprintf(
		"exit_code: %d\nduration: %s\ntruncated: %v\nstdout:\n%s\nstderr:\n%s",
		exitCode, duration, outTruncated || errTruncated, outText, errText,
	), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n...[truncated]"
}

// preview returns a confirmation-safe preview of a command, capped at 80
// characters's confirmation callback contract.
func preview(command string) string {
	const max = 80
	if len(command) <= max {
		return command
	}
	return command[:max-3] + "..."
}
