// Package cli implements the notesctl command line front end. Every command
// builds a fresh client, signs in when it needs to, runs one core operation
// and prints the result.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notesync/config"
	"notesync/internal/client"
	"notesync/pkg/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "text" | "json" | "yaml"
	APIURL   string
	Username string
	Password string
}

var ValidFormats = []string{"text", "json", "yaml"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "notesctl",
		Short: "Manage notes on a notesync server",
		Long: `Manage notes on a notesync server.

Credentials come from --username/--password or from the NOTES_USERNAME and
NOTES_PASSWORD environment variables. The server address comes from --api-url
or NOTES_API_URL.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "server base URL")
	cmd.PersistentFlags().StringVarP(&opts.Username, "username", "u", "", "account username")
	cmd.PersistentFlags().StringVarP(&opts.Password, "password", "p", "", "account password")

	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// connect builds a client from the environment and the global flags.
func (o *RootOptions) connect(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if o.APIURL != "" {
		cfg.APIURL = strings.TrimRight(o.APIURL, "/")
	}

	log := zap.NewNop()
	if o.Verbose {
		log = logger.NewWriter("debug", cmd.ErrOrStderr())
	}
	return client.New(cfg, client.WithLogger(log)), nil
}

func (o *RootOptions) credentials() (string, string, error) {
	user := o.Username
	if user == "" {
		user = os.Getenv("NOTES_USERNAME")
	}
	pass := o.Password
	if pass == "" {
		pass = os.Getenv("NOTES_PASSWORD")
	}
	if user == "" || pass == "" {
		return "", "", NewExitError(ExitCommandError, "username and password are required (flags or NOTES_USERNAME/NOTES_PASSWORD)")
	}
	return user, pass, nil
}

// signIn connects and logs in. Callers must Close the returned client.
func (o *RootOptions) signIn(ctx context.Context, cmd *cobra.Command) (*client.Client, error) {
	user, pass, err := o.credentials()
	if err != nil {
		return nil, err
	}
	c, err := o.connect(cmd)
	if err != nil {
		return nil, err
	}
	if err := c.Session.Login(ctx, user, pass); err != nil {
		c.Close()
		return nil, WrapExitError(ExitFailure, "could not sign in", err)
	}
	return c, nil
}

func (o *RootOptions) printer(cmd *cobra.Command) *Printer {
	return &Printer{Format: o.Format, Writer: cmd.OutOrStdout()}
}

// exactArgs is cobra.ExactArgs reporting a command error exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}
		return nil
	}
}
