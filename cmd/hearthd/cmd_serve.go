package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hearth/internal/logging"
	"hearth/internal/wiring"
)

const localChatID = "local-terminal"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent runtime as a long-lived process, with the cron scheduler active",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		configureLogging(cfg)
		log := logging.Get(logging.CategoryWiring)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reader := bufio.NewReader(os.Stdin)
		rt, err := wiring.Build(ctx, cfg, confirmOnStdin(reader))
		if err != nil {
			return fmt.Errorf("hearthd: build runtime: %w", err)
		}
		defer rt.Close()

		rt.Scheduler.Start(ctx)
		log.Info("hearthd serve: scheduler started, polling every %s", rt.Scheduler.Interval)

		return runREPL(ctx, rt, localChatID, reader)
	},
}
