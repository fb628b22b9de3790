// Package errs provides the error type shared by all Filecrate subsystems.
//
// The vfs store classifies every failure into one of a small set of kinds;
// the HTTP layer maps kinds to status codes without inspecting error strings.
//
// Usage:
//
//	// In the store, classify the failure:
//	return errs.New(errs.KindNotFound, "directory does not exist: "+rel)
//
//	// In a handler, check the kind:
//	if errs.IsNotFound(err) {
//	    s.sendError(w, http.StatusNotFound, err.Error())
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an error without exposing filesystem-level detail.
type Kind int

const (
	KindUnknown          Kind = iota
	KindInvalidArgument       // missing or empty required input
	KindAccessDenied          // path traversal attempt
	KindNotFound              // missing file, directory, or trash target
	KindPayloadTooLarge       // upload exceeds the per-file cap
	KindInvalidOperation      // illegal operation target (e.g. restoring the trash root)
	KindIO                    // underlying filesystem failure
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindAccessDenied:
		return "access_denied"
	case KindNotFound:
		return "not_found"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindIO:
		return "io_failure"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the vfs store.
type Error struct {
	Kind    Kind
	Message string
	Cause   error // original OS-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Errorf creates an *Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsInvalidArgument reports whether err was caused by missing or empty input.
func IsInvalidArgument(err error) bool {
	return KindOf(err) == KindInvalidArgument
}

// IsAccessDenied reports whether err is a path traversal rejection.
func IsAccessDenied(err error) bool {
	return KindOf(err) == KindAccessDenied
}

// IsNotFound reports whether err represents a missing file, directory,
// or trash entry.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsPayloadTooLarge reports whether err is a per-file size cap rejection.
func IsPayloadTooLarge(err error) bool {
	return KindOf(err) == KindPayloadTooLarge
}

// IsInvalidOperation reports whether err is an illegal-target rejection.
func IsInvalidOperation(err error) bool {
	return KindOf(err) == KindInvalidOperation
}

// IsIO reports whether err is an underlying filesystem failure.
func IsIO(err error) bool {
	return KindOf(err) == KindIO
}

// KindOf extracts the Kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
