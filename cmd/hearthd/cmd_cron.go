package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hearth/internal/wiring"
)

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Manage scheduled jobs",
}

var (
	cronExpression  string
	cronInstruction string
	cronJobID       string
)

var cronListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled jobs",
	RunE:  runCronAction("list", func() map[string]interface{} { return nil }),
}

var cronCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Schedule a new job",
	RunE: runCronAction("create", func() map[string]interface{} {
		return map[string]interface{}{"expression": cronExpression, "instruction": cronInstruction}
	}),
}

var cronDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a scheduled job",
	RunE: runCronAction("delete", func() map[string]interface{} {
		return map[string]interface{}{"id": cronJobID}
	}),
}

// runCronAction builds the cron_schedule input from extra fields and
// invokes it directly against the registry, the way an operator at a
// terminal bypasses the model for a command they typed explicitly.
func runCronAction(action string, extra func() map[string]interface{}) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		configureLogging(cfg)

		rt, err := wiring.Build(context.Background(), cfg, nil)
		if err != nil {
			return fmt.Errorf("hearthd: build runtime: %w", err)
		}
		defer rt.Close()

		input := extra()
		if input == nil {
			input = map[string]interface{}{}
		}
		input["action"] = action

		out, err := rt.Registry.Execute(context.Background(), "cron_schedule", input)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}
}

func init() {
	cronCreateCmd.Flags().StringVar(&cronExpression, "expression", "", "5-field cron expression")
	cronCreateCmd.Flags().StringVar(&cronInstruction, "instruction", "", "what the agent should do when the job fires")
	cronCreateCmd.MarkFlagRequired("expression")
	cronCreateCmd.MarkFlagRequired("instruction")

	cronDeleteCmd.Flags().StringVar(&cronJobID, "id", "", "job id to delete")
	cronDeleteCmd.MarkFlagRequired("id")

	cronCmd.AddCommand(cronListCmd, cronCreateCmd, cronDeleteCmd)
}
