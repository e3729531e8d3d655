package apperr

import (
	"errors"

	"github.com/lib/pq"
)

type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindInactive           Kind = "inactive"
	KindForbidden          Kind = "forbidden"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindLimitExceeded      Kind = "limit_exceeded"
	KindDailyLimitExceeded Kind = "daily_limit_exceeded"
	KindBelowMinimum       Kind = "below_minimum"
	KindConflict           Kind = "conflict"
	KindServiceUnavailable Kind = "service_unavailable"
)

// Sentinels for errors.Is checks against a kind regardless of message.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInactive           = &Error{Kind: KindInactive}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrLimitExceeded      = &Error{Kind: KindLimitExceeded}
	ErrDailyLimitExceeded = &Error{Kind: KindDailyLimitExceeded}
	ErrBelowMinimum       = &Error{Kind: KindBelowMinimum}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
)

// Error is a user-facing failure. Message is safe to return to callers; Err
// holds the internal cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func InsufficientFunds() *Error { return New(KindInsufficientFunds, "Insufficient balance") }

// KindOf returns the kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// MessageOf returns the caller-safe message for err.
func MessageOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// IsUniqueViolation reports a Postgres unique constraint failure (23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// FromStore converts a failed ledger write into the caller-facing error. Domain
// errors raised inside the write pass through untouched.
func FromStore(err error, message string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	if IsUniqueViolation(err) {
		return Wrap(KindConflict, "Duplicate transaction reference, please retry", err)
	}
	return Wrap(KindServiceUnavailable, message, err)
}
