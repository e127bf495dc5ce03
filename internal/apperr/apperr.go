package apperr

import (
	"errors"
	"fmt"
)

// Error kinds shared by the services and the HTTP layer.
// Concrete errors wrap one of these so callers can classify them with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrToolUnavailable = errors.New("tool unavailable")
	ErrProcessing      = errors.New("processing error")
	ErrTimeout         = fmt.Errorf("timed out: %w", ErrProcessing)
	ErrNotFound        = errors.New("not found")
)

// kindError attaches a kind to a client-facing message.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Validation returns a validation error with the given message.
func Validation(format string, args ...any) error {
	return newKind(ErrValidation, format, args...)
}

// TooLarge returns a payload-too-large error with the given message.
func TooLarge(format string, args ...any) error {
	return newKind(ErrPayloadTooLarge, format, args...)
}

// Unavailable returns a tool-unavailable error with the given message.
func Unavailable(format string, args ...any) error {
	return newKind(ErrToolUnavailable, format, args...)
}

// Processing returns a processing error with the given message.
func Processing(format string, args ...any) error {
	return newKind(ErrProcessing, format, args...)
}

// Timeout returns a timeout error with the given message.
func Timeout(format string, args ...any) error {
	return newKind(ErrTimeout, format, args...)
}

// NotFound returns a not-found error with the given message.
func NotFound(format string, args ...any) error {
	return newKind(ErrNotFound, format, args...)
}

// Message returns the client-facing message of err: the innermost
// kind-tagged message if present, otherwise err.Error().
func Message(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}

	return err.Error()
}
