package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// NewWatchCommand prints the note list once and again after every change
// pushed by the server, until interrupted.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "watch",
		Short:         "Print the note list whenever it changes",
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := opts.signIn(ctx, cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			p := opts.printer(cmd)
			if err := c.Notes.FetchAll(ctx); err != nil {
				return WrapExitError(ExitFailure, "could not load notes", err)
			}
			if err := p.Notes(c.Notes.DisplayAll()); err != nil {
				return err
			}

			changed := make(chan struct{}, 1)
			unsubscribe := c.Notes.OnChange(func() {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			defer unsubscribe()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- c.Notes.Watch(ctx) }()

			reprint := func() error {
				if p.Format == "text" {
					io.WriteString(p.Writer, "--\n")
				}
				return p.Notes(c.Notes.DisplayAll())
			}
			for {
				select {
				case <-changed:
					if err := reprint(); err != nil {
						return err
					}
				case err := <-done:
					select {
					case <-changed:
						if perr := reprint(); perr != nil {
							return perr
						}
					default:
					}
					if err == nil || errors.Is(err, context.Canceled) {
						return nil
					}
					return WrapExitError(ExitFailure, "change stream closed", err)
				}
			}
		},
	}
}
