// Package backend defines the plugin contract pluggable storage backends
// implement, and the ordered registry the dispatch engine uses to resolve
// a type-name string to one of them.
//
// It plays the role the teacher's libvuln/driver and indexer packages
// play for matchers and scanners: a small set of function-shaped contracts
// plus a registry keyed by name. Because the specification explicitly
// requires detecting an "unavailable" backend by the absence of a
// function pointer, descriptors here are built from optional function
// fields rather than a Go interface — an interface would force every
// backend to provide stub implementations of methods it doesn't support.
package backend

import "context"

// Result is the three-way outcome of a backend Find call.
type Result int

const (
	// OK means the key was found; Data holds the answer.
	OK Result = iota
	// FAIL means the key was definitely not found. The engine treats
	// this as "not found" and may proceed to fallback probing.
	FAIL
	// Defer means a transient failure occurred; the caller should not
	// retry through fallback probing, only at a later, unrelated call.
	Defer
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case FAIL:
		return "fail"
	case Defer:
		return "defer"
	default:
		return "unknown"
	}
}

// CacheForever is the TTL sentinel meaning "cache this result until the
// next tidyup, regardless of what the host would otherwise choose".
const CacheForever = ^uint32(0)

// FindResult is what a backend's Find function reports.
type FindResult struct {
	Status Result
	Data   string
	// TTL is in/out: the engine passes CacheForever in; the backend may
	// narrow it to a number of seconds, or set it to 0 to mean "do not
	// cache this result, and clear any existing cache for this handle".
	TTL uint32
}

// OpenFunc opens filename (empty for pure QUERY backends) and returns an
// opaque connection handle.
type OpenFunc func(ctx context.Context, filename string) (conn any, err error)

// CheckFunc verifies a freshly opened connection against host-provided
// ownership/mode constraints. File backends must use fstat on the already
// open descriptor, never stat the path first (TOCTOU).
type CheckFunc func(ctx context.Context, conn any, filename string, modeMask uint32, owners, groups []int) error

// FindFunc performs the actual lookup.
type FindFunc func(ctx context.Context, conn any, filename, key, opts string) (FindResult, error)

// CloseFunc releases a connection. The engine never calls Close twice for
// the same open without an intervening successful Open.
type CloseFunc func(conn any)

// TidyFunc performs backend-global cleanup, called once per Tidyup
// regardless of whether the backend was used in the window being closed.
type TidyFunc func()

// QuoteFunc quotes a raw key for safe inclusion in this backend's query
// syntax. Its mere presence is the signal that unquoted tainted keys must
// be rejected (or logged) before use.
type QuoteFunc func(raw string) string

// Descriptor is a backend's registration record.
//
// Only Find is required; every other field may be nil. A Descriptor with
// a nil Find is "declared but unavailable" and FindType rejects it with a
// distinct diagnostic rather than silently ignoring it.
type Descriptor struct {
	Name  string
	Kind  Kind
	Open  OpenFunc
	Check CheckFunc
	Find  FindFunc
	Close CloseFunc
	Tidy  TidyFunc
	Quote QuoteFunc
}

// Available reports whether the backend has a Find implementation.
func (d *Descriptor) Available() bool {
	return d != nil && d.Find != nil
}

// SafeClose calls d.Close if the descriptor provides one. The engine never
// calls Close twice for the same open, so backends are not required to
// make it idempotent.
func (d *Descriptor) SafeClose(conn any) {
	if d.Close != nil {
		d.Close(conn)
	}
}
