package report

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies pipeline failures. The batch driver and the HTTP layer
// branch on Kind, never on error strings.
type Kind string

const (
	// KindAuth means no credential source succeeded. Fatal for a whole batch.
	KindAuth Kind = "auth_error"
	// KindNotFound means an unknown report key or table was requested.
	KindNotFound Kind = "not_found"
	// KindSource means the upstream analytics API call failed.
	KindSource Kind = "source_error"
	// KindSchema means dataset or table creation failed.
	KindSchema Kind = "schema_error"
	// KindLoad means the partition delete or the row insert failed.
	KindLoad Kind = "load_error"
	// KindValidation means required caller input was missing. Raised before
	// any network I/O.
	KindValidation Kind = "validation_error"
)

// Error is a classified pipeline failure. The first terminal Error in a
// report-key run is captured as that key's outcome; it is never re-raised
// across keys.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error wrapping an optional cause.
func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFoundKey builds the unknown-report-key error, listing the valid keys so
// callers can self-correct.
func NotFoundKey(key string, available []string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("unknown report key %q, available: %s", key, strings.Join(available, ", ")),
	}
}

// KindOf extracts the Kind from err, unwrapping as needed. Unclassified
// errors report KindSource, the most common failure origin, so a stray
// wrapped error still lands in a per-key outcome instead of a panic path.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSource
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
