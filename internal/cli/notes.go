package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"notesync/internal/gateway"
	"notesync/internal/notes"
)

func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List your notes",
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signIn(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Notes.FetchAll(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "could not load notes", err)
			}
			return opts.printer(cmd).Notes(c.Notes.DisplayAll())
		},
	}
}

func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Print one note",
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signIn(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Notes.FetchAll(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "could not load notes", err)
			}
			n, err := c.Notes.Get(args[0])
			if errors.Is(err, notes.ErrLocalNotFound) {
				return NewExitError(ExitFailure, fmt.Sprintf("note %s not found", args[0]))
			}
			if err != nil {
				return err
			}
			return opts.printer(cmd).Note(c.Notes.Display(n))
		},
	}
}

type editOptions struct {
	Title   string
	Content string
}

func (e *editOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&e.Title, "title", "t", "", "note title (first line)")
	cmd.Flags().StringVarP(&e.Content, "content", "c", "", "note body")
}

func NewCreateCommand(opts *RootOptions) *cobra.Command {
	edit := &editOptions{}
	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a note",
		Args:          exactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if edit.Title == "" && edit.Content == "" {
				return NewExitError(ExitCommandError, "--title or --content is required")
			}
			c, err := opts.signIn(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := c.Notes.Create(cmd.Context(), edit.Title, edit.Content)
			if err != nil && id == "" {
				return WrapExitError(ExitFailure, "could not create note", err)
			}
			if err != nil {
				opts.warn(cmd, "note created but the list could not be refreshed: %v", err)
			}
			return opts.printer(cmd).Status(
				map[string]string{"status": "created", "id": id},
				fmt.Sprintf("Created note %s.", id),
			)
		},
	}
	edit.bind(cmd)
	return cmd
}

func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	edit := &editOptions{}
	cmd := &cobra.Command{
		Use:           "update <id>",
		Short:         "Replace the title and body of a note",
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signIn(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Notes.Update(cmd.Context(), args[0], edit.Title, edit.Content); err != nil {
				return noteError("update", args[0], err)
			}
			return opts.printer(cmd).Status(
				map[string]string{"status": "updated", "id": args[0]},
				fmt.Sprintf("Updated note %s.", args[0]),
			)
		},
	}
	edit.bind(cmd)
	return cmd
}

func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a note",
		Args:          exactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signIn(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Notes.Delete(cmd.Context(), args[0]); err != nil {
				return noteError("delete", args[0], err)
			}
			return opts.printer(cmd).Status(
				map[string]string{"status": "deleted", "id": args[0]},
				fmt.Sprintf("Deleted note %s.", args[0]),
			)
		},
	}
}

func noteError(op, id string, err error) error {
	if gateway.IsNotFound(err) {
		return NewExitError(ExitFailure, fmt.Sprintf("note %s not found", id))
	}
	return WrapExitError(ExitFailure, "could not "+op+" note", err)
}

func (o *RootOptions) warn(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
}
