package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/inboxkeeper/internal/gmail"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Gmail access and save the OAuth token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := gmail.Authorize(cmd.Context(), cfg.Gmail.CredentialsFile, cfg.Gmail.TokenFile, os.Stdin, cmd.OutOrStdout()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", cfg.Gmail.TokenFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
