package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"hearth/internal/wiring"
)

// confirmOnStdin builds an agent.ConfirmFunc that prompts an operator at a
// terminal for CONFIRM-tier tool calls, sharing reader with the REPL loop
// that drives it — safe because a confirmation is always awaited
// synchronously from within the very RunTurn call the REPL is blocked on,
// so the two never read stdin concurrently.
func confirmOnStdin(reader *bufio.Reader) func(ctx context.Context, toolName, preview string) bool {
	return func(ctx context.Context, toolName, preview string) bool {
		fmt.Printf("\nconfirm %s %s ? [y/N] ", toolName, preview)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

// runREPL drives a line-at-a-time chat loop against rt under sessionID
// derived from chatID, until stdin closes or the user types "exit"/"quit".
func runREPL(ctx context.Context, rt *wiring.Runtime, chatID string, reader *bufio.Reader) error {
	fmt.Println("hearth is listening. Type a message and press enter (Ctrl-D to quit).")
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			return nil
		}

		reply, err := rt.HandleMessage(ctx, chatID, text)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}
}
