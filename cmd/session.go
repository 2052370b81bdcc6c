package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionCmd(deps *appLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the stored conversation session",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the session id stored by the last run",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				app, err := deps.load(cmd)
				if err != nil {
					return err
				}

				token, err := app.sessions.StoredSessionID(cmd.Context())
				if errors.Is(err, domain.ErrSessionNotFound) {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "no stored session")
					return err
				}
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
				return err
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the stored session so the next run starts fresh",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				app, err := deps.load(cmd)
				if err != nil {
					return err
				}

				app.sessions.ClearSessionID(cmd.Context())
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
				return err
			},
		},
	)

	return cmd
}
