// Package lookupcore implements a generic lookup dispatch and caching layer
// for resolving keys against heterogeneous backing stores (flat files,
// indexed files, network directories, SQL databases, DNS-like services) on
// behalf of a mail transport agent.
package lookupcore

import (
	"errors"
	"strings"
)

// Error is the lookupcore error domain type.
//
// Errors coming from lookupcore components should be able to be inspected
// as ([errors.As]) an *Error at some point in the error chain.
//
// Backend implementations should create an Error at the system boundary
// (e.g. opening a file, running a query) and the dispatch engine should not
// wrap in another Error except to add additional [ErrorKind] information.
// Prefer [fmt.Errorf] with a "%w" verb over nesting Error values.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error, rendering "Op: [Kind] Message: Inner" with an
// empty Op, Message or Inner (and its separator) omitted entirely. A
// missing or unrecognized Kind renders as "[???]".
func (e *Error) Error() string {
	parts := make([]string, 0, 4)
	if e.Op != "" {
		parts = append(parts, e.Op+":")
	}
	if e.Kind.valid() {
		parts = append(parts, "["+string(e.Kind)+"]")
	} else {
		parts = append(parts, "[???]")
	}
	msg := e.Message
	if e.Inner != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Inner.Error()
	}
	if msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, " ")
}

// Is enables [errors.Is]; it compares the error kind, except for
// [ErrRetryable], which a caller should use instead of comparing against
// [ErrDefer] or [ErrEviction] individually: both describe a lookup that
// failed to complete this time around but may succeed if retried, the
// distinction lookupctl's EX_TEMPFAIL exit path cares about.
func (e *Error) Is(kind error) bool {
	if kind == ErrRetryable {
		return errors.Is(e.Kind, ErrDefer) || errors.Is(e.Kind, ErrEviction)
	}
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// Temporary reports whether retrying the call that produced e stands a
// chance of succeeding without any configuration change.
func (e *Error) Temporary() bool {
	return e.Kind == ErrDefer || e.Kind == ErrEviction
}

// ErrorKind represents classes of errors the engine and its backends raise.
//
// These mirror the taxonomy in the dispatch engine's error handling design:
// type errors, safety errors, backend open/check failures, backend find
// failures, defers, and eviction starvation.
type ErrorKind string

// Defined error kinds.
var (
	ErrType        = ErrorKind("type")         // unknown or unavailable backend, malformed full-type string
	ErrSafety      = ErrorKind("safety")       // tainted filename at open, or tainted unquoted query key
	ErrBackendOpen = ErrorKind("backend-open") // backend open or check failed
	ErrBackendFind = ErrorKind("backend-find") // backend find returned an error, or Find was called on a handle that is not open (a FAIL result is a plain miss, not an error)
	ErrDefer       = ErrorKind("defer")        // backend reported DEFER
	ErrEviction    = ErrorKind("eviction")     // LRU chain empty but open_filecount already at the cap

	// ErrRetryable should only be used as the target of an [Is] comparison;
	// it is never the Kind of a constructed Error.
	ErrRetryable = ErrorKind("retryable")
)

func (k ErrorKind) valid() bool {
	switch k {
	case ErrType, ErrSafety, ErrBackendOpen, ErrBackendFind, ErrDefer, ErrEviction:
		return true
	default:
		return false
	}
}

// Error implements error.
func (k ErrorKind) Error() string {
	return string(k)
}
