package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// ErrorType classifies a failure for the purposes of retry and abort
// decisions:
//
//   - transient errors are retried with backoff and downgraded to permanent
//     once attempts are exhausted
//   - permanent errors fail a single work unit, which is skipped; the run
//     continues
//   - corruption means an unreadable persisted file; absent-ish for
//     checkpoints, fatal for the dataset
//   - fatal errors abort the run immediately, leaving checkpoint and dataset
//     in their last persisted state
type ErrorType string

const (
	ErrorTypeTransient  ErrorType = "transient"
	ErrorTypePermanent  ErrorType = "permanent"
	ErrorTypeCorruption ErrorType = "corruption"
	ErrorTypeFatal      ErrorType = "fatal"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error carries a failure classification alongside the underlying cause.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: %s error (code %d): %s", e.Op, e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a message.
func New(errorType ErrorType, op, message string) *Error {
	return &Error{Type: errorType, Op: op, Message: message}
}

// Wrap classifies an existing error.
func Wrap(errorType ErrorType, op string, err error) *Error {
	return &Error{Type: errorType, Op: op, Err: err}
}

// Transient marks an error as retryable.
func Transient(op string, err error) *Error {
	return Wrap(ErrorTypeTransient, op, err)
}

// Permanent marks an error as a per-unit failure that should be skipped.
func Permanent(op string, err error) *Error {
	return Wrap(ErrorTypePermanent, op, err)
}

// Corruption marks a persisted file as unreadable.
func Corruption(op string, err error) *Error {
	return Wrap(ErrorTypeCorruption, op, err)
}

// Fatal marks a storage-layer or configuration failure that aborts the run.
func Fatal(op string, err error) *Error {
	return Wrap(ErrorTypeFatal, op, err)
}

// TypeOf returns the classification of err, or ErrorTypeUnknown when err
// carries none.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable reports whether an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch TypeOf(err) {
	case ErrorTypeTransient:
		return true
	case ErrorTypePermanent, ErrorTypeCorruption, ErrorTypeFatal:
		return false
	default:
		// Unknown errors from the network layer default to retrying
		return true
	}
}

// IsFatal reports whether an error must abort the run.
func IsFatal(err error) bool {
	t := TypeOf(err)
	return t == ErrorTypeFatal || t == ErrorTypeCorruption
}

// ClassifyStatus maps an HTTP status code onto the taxonomy: network errors
// (code 0), 429 and 5xx are transient, the remaining 4xx are permanent.
func ClassifyStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeTransient
	case statusCode == 429:
		return ErrorTypeTransient
	case statusCode >= 500:
		return ErrorTypeTransient
	case statusCode >= 400:
		return ErrorTypePermanent
	default:
		return ErrorTypeUnknown
	}
}

// FromStatus builds a classified error from an HTTP status code.
func FromStatus(op string, statusCode int) *Error {
	return &Error{
		Type:    ClassifyStatus(statusCode),
		Op:      op,
		Message: fmt.Sprintf("unexpected HTTP status %d", statusCode),
		Code:    statusCode,
	}
}
