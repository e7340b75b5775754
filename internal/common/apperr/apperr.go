package apperr

import (
	"errors"
	"fmt"
)

// Code identifies the failure class surfaced to callers. Handlers map each
// code (and, for UNAUTHORIZED, each reason) to a distinct user-facing message.
type Code string

const (
	CodeNotFound         Code = "NOT_FOUND"
	CodeAmbiguous        Code = "AMBIGUOUS"
	CodeInvalidSelection Code = "INVALID_SELECTION"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeCapacityExceeded Code = "CAPACITY_EXCEEDED"
	CodeInvalidName      Code = "INVALID_NAME"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// Reason refines CodeUnauthorized.
type Reason string

const (
	ReasonWrongContext  Reason = "wrong_context"
	ReasonActorNotAdmin Reason = "actor_not_admin"
	ReasonBotNotAdmin   Reason = "bot_not_admin"
)

// Error is the typed application error carried across service boundaries.
type Error struct {
	Code    Code
	Reason  Reason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	case e.Reason != "":
		return fmt.Sprintf("[%s/%s] %s", e.Code, e.Reason, e.Message)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is match on code (and reason, when the target carries one).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// Unauthorized builds an UNAUTHORIZED error with its sub-reason.
func Unauthorized(reason Reason, message string) *Error {
	return &Error{Code: CodeUnauthorized, Reason: reason, Message: message}
}

// CodeOf extracts the application code from err, or "" for foreign errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ReasonOf extracts the unauthorized sub-reason, or "" when absent.
func ReasonOf(err error) Reason {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
