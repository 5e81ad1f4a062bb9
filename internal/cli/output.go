package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"notesync/internal/display"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the server refused the operation
	ExitCommandError = 2 // bad flags, configuration or credentials
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that are not an *ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Printer renders command results in the selected format.
type Printer struct {
	Format string
	Writer io.Writer
}

// Print writes v as JSON or YAML, or calls text for the text format.
func (p *Printer) Print(v any, text func(w io.Writer)) error {
	switch p.Format {
	case "json":
		enc := json.NewEncoder(p.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	text(p.Writer)
	return nil
}

// Notes prints a list with one line per note in text mode.
func (p *Printer) Notes(notes []display.Note) error {
	return p.Print(notes, func(w io.Writer) {
		if len(notes) == 0 {
			fmt.Fprintln(w, "No notes.")
			return
		}
		for _, n := range notes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", n.ID, n.UpdatedAt, n.Title)
		}
	})
}

// Note prints a single note with its body in text mode.
func (p *Printer) Note(n display.Note) error {
	return p.Print(n, func(w io.Writer) {
		fmt.Fprintf(w, "ID:      %s\n", n.ID)
		fmt.Fprintf(w, "Title:   %s\n", n.Title)
		fmt.Fprintf(w, "Created: %s\n", n.CreatedAt)
		fmt.Fprintf(w, "Updated: %s\n", n.UpdatedAt)
		if n.Content != "" {
			fmt.Fprintf(w, "\n%s\n", n.Content)
		}
	})
}

// Status prints a one-line result.
func (p *Printer) Status(fields map[string]string, line string) error {
	return p.Print(fields, func(w io.Writer) {
		fmt.Fprintln(w, line)
	})
}
