package game

import (
	"errors"
	"fmt"
)

// ErrorKind buckets an error for clients: validation and authorization
// failures are the caller's fault, preconditions name a failed guard,
// conflicts report a rejected duplicate action.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindPrecondition  ErrorKind = "precondition"
	KindNotFound      ErrorKind = "not_found"
	KindConflict      ErrorKind = "conflict"
	KindAuthorization ErrorKind = "authorization"
	KindUnavailable   ErrorKind = "unavailable"
)

// Error is the structured error every engine operation returns on
// failure. Code is stable for clients, Message is for humans.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrDuplicateExact = &Error{KindConflict, "DUPLICATE_EXACT", "an identical answer already exists in this round"}
	ErrNoActiveRound  = &Error{KindPrecondition, "no_active_round", "no active round"}
	ErrPanicMode      = &Error{KindPrecondition, "panic_mode_active", "audience interaction is suspended"}
	ErrNoFurtherItem  = &Error{KindConflict, "no_further_item", "no further item to reveal"}
	ErrAIUnavailable  = &Error{KindUnavailable, "ai_unavailable", "no AI provider available, enter the answer manually"}
)

func validationErr(code, format string, args ...any) *Error {
	return &Error{KindValidation, code, fmt.Sprintf(format, args...)}
}

func preconditionErr(code, format string, args ...any) *Error {
	return &Error{KindPrecondition, code, fmt.Sprintf(format, args...)}
}

func notFoundErr(code, format string, args ...any) *Error {
	return &Error{KindNotFound, code, fmt.Sprintf(format, args...)}
}

func conflictErr(code, format string, args ...any) *Error {
	return &Error{KindConflict, code, fmt.Sprintf(format, args...)}
}

// AuthorizationError is returned when a non-host issues a host command.
func AuthorizationError(command string) *Error {
	return &Error{KindAuthorization, "host_only", fmt.Sprintf("command %q requires the host role", command)}
}

// CodeOf extracts the stable error code, or "internal" for plain errors.
func CodeOf(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return "internal"
}

// KindOf extracts the error kind, defaulting to validation.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindValidation
}
