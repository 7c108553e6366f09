package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChatSelected is returned when an operation needs a chat id and got none.
	ErrNoChatSelected = errors.New("no chat selected")
	// ErrEmptyMessage is returned when a draft has neither text nor image.
	ErrEmptyMessage = errors.New("message has no content")
	// ErrNotFound is returned when the backend reports no such chat.
	ErrNotFound = errors.New("chat not found")
)

// RequestFailedError wraps a backend or network failure.
type RequestFailedError struct {
	Op     string
	Status int // HTTP status, 0 for transport errors
	Cause  error
}

func (e *RequestFailedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: request failed (%d): %v", e.Op, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Op, e.Cause)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Cause
}

// RequestFailed builds a RequestFailedError for op.
func RequestFailed(op string, status int, cause error) error {
	return &RequestFailedError{Op: op, Status: status, Cause: cause}
}

// IsRequestFailed reports whether err is, or wraps, a RequestFailedError.
func IsRequestFailed(err error) bool {
	var rf *RequestFailedError
	return errors.As(err, &rf)
}
