package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSecretCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the server's trusted API key in the secret store",
	}

	cmd.AddCommand(newSecretSetCmd(app), newSecretRemoveCmd(app))

	return cmd
}

func newSecretSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the trusted API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secretStore.Put(commandContext(cmd), app.cfg.SecretKey, value); err != nil {
				return fmt.Errorf("store secret %q: %w", app.cfg.SecretKey, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "stored secret %q\n", app.cfg.SecretKey)
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Secret value")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newSecretRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the trusted API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secretStore.Delete(commandContext(cmd), app.cfg.SecretKey); err != nil {
				return fmt.Errorf("remove secret %q: %w", app.cfg.SecretKey, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed secret %q\n", app.cfg.SecretKey)
			return err
		},
	}
}
