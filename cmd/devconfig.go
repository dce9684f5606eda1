package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDevConfigCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devconfig",
		Short: "Manage the local developer override used when the server has no API key",
	}

	cmd.AddCommand(newDevConfigShowCmd(app), newDevConfigSetCmd(app), newDevConfigClearCmd(app))

	return cmd
}

func newDevConfigShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored developer override",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.devConfig.Load(commandContext(cmd))
			if cfg == nil {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "developer override: none")
				return err
			}

			workflow := cfg.WorkflowID
			if workflow == "" {
				workflow = "-"
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "developer override: api key %s, workflow %s\n", maskKey(cfg.APIKey), workflow)
			return err
		},
	}
}

func newDevConfigSetCmd(app *app) *cobra.Command {
	var apiKey string
	var workflowID string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a developer API key and optional workflow id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.devConfig.Save(commandContext(cmd), apiKey, workflowID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved developer override (api key %s)\n", maskKey(cfg.APIKey))
			return err
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "OpenAI API key for local development")
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Workflow id (optional)")

	return cmd
}

func newDevConfigClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored developer override",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.devConfig.Clear(commandContext(cmd))
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "cleared developer override")
			return err
		},
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
