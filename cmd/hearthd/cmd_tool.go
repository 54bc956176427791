package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"hearth/internal/wiring"
)

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Inspect the tool registry",
}

var toolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered tool and its input schema",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		for _, schema := range rt.Registry.Schemas() {
			fmt.Printf("%s\n  %s\n", schema.Name, schema.Description)
			for name, prop := range schema.InputSchema.Properties {
				required := ""
				for _, r := range schema.InputSchema.Required {
					if r == name {
						required = " (required)"
					}
				}
				fmt.Printf("    - %s: %s%s\n", name, prop.Type, required)
			}
		}
		return nil
	},
}

func init() {
	toolCmd.AddCommand(toolListCmd)
}
