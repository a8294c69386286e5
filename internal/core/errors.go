package core

import (
	"errors"
	"fmt"
)

// Expected outcomes. These are not failures and are reported through
// MessageReport rather than returned from Handle.
var (
	ErrIgnored          = errors.New("message ignored")
	ErrDuplicateContent = errors.New("duplicate content")
	ErrPasswordNotFound = errors.New("no password found")
)

// NotificationFailedError wraps a failed notification send
type NotificationFailedError struct {
	Cause error
}

func (e *NotificationFailedError) Error() string {
	return fmt.Sprintf("notification failed: %v", e.Cause)
}

func (e *NotificationFailedError) Unwrap() error {
	return e.Cause
}

// URLProcessingError is a URL task that failed after all attempts
type URLProcessingError struct {
	URL   string
	Cause error
}

func (e *URLProcessingError) Error() string {
	return fmt.Sprintf("processing %s failed: %v", e.URL, e.Cause)
}

func (e *URLProcessingError) Unwrap() error {
	return e.Cause
}

// URLTimeoutError is a URL task that ran past its deadline
type URLTimeoutError struct {
	URL string
}

func (e *URLTimeoutError) Error() string {
	return fmt.Sprintf("processing %s timed out", e.URL)
}
