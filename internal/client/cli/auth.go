package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (r *runner) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Store the access token used for all mutations",
		Args:  cobra.MaximumNArgs(1),
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				var err error
				if token, err = GetSecret(cmd.InOrStdin(), "Access token", cmd.OutOrStdout()); err != nil {
					return err
				}
			}

			info, err := r.app.Session.SetToken(cmd.Context(), token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "logged in as %s\n", info.UserID)
			if !info.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "token expires %s\n", info.ExpiresAt.Local().Format(time.RFC3339))
			}
			return nil
		}),
	}
}

func (r *runner) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: r.run(func(cmd *cobra.Command, args []string) error {
			if err := r.app.Session.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		}),
	}
}
