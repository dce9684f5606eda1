package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ckb",
		Short:         "ChatKit broker (ckb): issue ChatKit client sessions without exposing the API key",
		Long:          "ckb (ChatKit broker) runs the session endpoint that trades the server's OpenAI API key for short-lived ChatKit client secrets, mounts the chat widget headlessly, and manages local developer overrides and stored secrets.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newMountCmd(app),
		newDevConfigCmd(app),
		newSecretCmd(app),
	)

	return rootCmd
}
