package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized matches every *UnauthorizedError via errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// UnauthorizedError is returned for a 401 on an authenticated call. By the
// time the caller sees it the session has already been reset.
type UnauthorizedError struct {
	Method  string
	Path    string
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: unauthorized", e.Method, e.Path)
	}
	return fmt.Sprintf("%s %s: unauthorized: %s", e.Method, e.Path, e.Message)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// ServerError carries any other non-2xx response.
type ServerError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s %s: status=%d: %s", e.Method, e.Path, e.Status, e.Message)
}

// NetworkError wraps a transport failure: DNS, refused connection, timeout
// or a cancelled context.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Status
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

func IsConflict(err error) bool {
	return StatusOf(err) == http.StatusConflict
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// MessageOf extracts the server-provided message from err when there is one,
// falling back to err.Error().
func MessageOf(err error) string {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	var ue *UnauthorizedError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return err.Error()
}
