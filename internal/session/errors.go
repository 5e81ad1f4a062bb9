package session

import "fmt"

// AuthError reports a failed login or registration. Message is the server's
// explanation when one was returned, otherwise the transport error text.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
