package gofile

import (
	"errors"
	"fmt"
)

// Sentinel errors for the provider API.
var (
	// ErrAuthentication indicates token or site-token acquisition failed.
	ErrAuthentication = errors.New("authentication failed")

	// ErrPassword indicates the content requires a password or the supplied
	// password was rejected.
	ErrPassword = errors.New("invalid or missing password")

	// ErrContentNotFound indicates the content id does not exist.
	ErrContentNotFound = errors.New("content not found")
)

// APIError is returned when the content endpoint responds with a
// non-"ok" status.
type APIError struct {
	Status    string
	ContentID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error for content %s: status %q", e.ContentID, e.Status)
}

// PasswordError carries the password status reported by the API.
type PasswordError struct {
	Status string
}

func (e *PasswordError) Error() string {
	return fmt.Sprintf("password rejected: %s", e.Status)
}

func (e *PasswordError) Unwrap() error {
	return ErrPassword
}
