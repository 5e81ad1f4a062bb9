package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "register",
		Short:         "Create an account",
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, pass, err := opts.credentials()
			if err != nil {
				return err
			}
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Session.Register(cmd.Context(), user, pass); err != nil {
				return WrapExitError(ExitFailure, "could not register", err)
			}
			return opts.printer(cmd).Status(
				map[string]string{"status": "registered", "username": user},
				fmt.Sprintf("Registered %s.", user),
			)
		},
	}
}

// NewLoginCommand checks the credentials and reports when the issued token
// expires. Tokens are not persisted between invocations.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "login",
		Short:         "Verify credentials against the server",
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signIn(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			fields := map[string]string{"status": "authenticated", "username": c.Session.User()}
			line := fmt.Sprintf("Logged in as %s.", c.Session.User())
			if exp, ok := c.Session.ExpiresAt(); ok {
				fields["expires_at"] = exp.UTC().Format(time.RFC3339)
				line = fmt.Sprintf("Logged in as %s until %s.", c.Session.User(), fields["expires_at"])
			}
			return opts.printer(cmd).Status(fields, line)
		},
	}
}
