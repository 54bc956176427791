// Package main is hearthd's entry point: a cobra command tree over a
// shared internal/wiring.Runtime. Grounded on cmd/nerd's root-command
// wiring (persistent flags parsed once in main, subcommands registered in
// init(), a PersistentPreRunE that brings up logging before any subcommand
// body runs).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hearth/internal/agent"
	"hearth/internal/config"
	"hearth/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "hearthd",
	Short: "hearth — an autonomous personal agent runtime",
	Long: `hearthd runs the hearth agent runtime: a bounded reason-and-act loop over
a chat-completion model, durable memory, semantic retrieval and a fixed set
of sandboxed tools.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := agent.AssertGuards(); err != nil {
			return fmt.Errorf("hearthd: refusing to start: %w", err)
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func configureLogging(cfg *config.Config) {
	if err := logging.Configure(cfg.Observability.LogFile, cfg.Observability.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "hearthd: warning: %v\n", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the runtime's YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(toolCmd)
	rootCmd.AddCommand(cronCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
