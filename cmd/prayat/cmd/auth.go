package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"prayat/internal/credentials"
)

// newAuthCmd groups backend token management commands
func newAuthCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the backend API token",
	}

	authCmd.AddCommand(&cobra.Command{
		Use:   "set [token]",
		Short: "Store the backend API token in the system keyring",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			var err error
			if len(args) == 1 {
				token = args[0]
			} else {
				token, err = credentials.PromptToken(stdout)
				if err != nil {
					return err
				}
			}

			if err := credentials.NewManager().SetToken(token); err != nil {
				return fmt.Errorf("failed to store token: %w", err)
			}
			_, _ = fmt.Fprintln(stdout, "Token stored in keyring")
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show where the backend token is coming from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, source := credentials.NewManager().Token()
			_, _ = fmt.Fprintf(stdout, "Token source: %s\n", source)
			return nil
		},
	})

	authCmd.AddCommand(&cobra.Command{
		Use:   "remove",
		Short: "Delete the backend API token from the system keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := credentials.NewManager().DeleteToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}
			_, _ = fmt.Fprintln(stdout, "Token removed from keyring")
			return nil
		},
	})

	return authCmd
}
