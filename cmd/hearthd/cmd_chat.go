package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hearth/internal/wiring"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Drive the agent loop from a terminal, without the cron scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		configureLogging(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reader := bufio.NewReader(os.Stdin)
		rt, err := wiring.Build(ctx, cfg, confirmOnStdin(reader))
		if err != nil {
			return fmt.Errorf("hearthd: build runtime: %w", err)
		}
		defer rt.Close()

		return runREPL(ctx, rt, localChatID, reader)
	},
}
