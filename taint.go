package lookupcore

// Tainted is a string value annotated with whether it derives from
// untrusted input.
//
// It plays the role the specification calls the "taint tracking
// framework": a predicate the dispatch engine consults at two points (the
// filename passed to Open and the key before a quoting check) and a narrow
// copy-with-origin API for producing an untainted value. The strings Find
// returns and writes into expansion-variable slots are plain strings that
// carry no taint marker.
//
// Tainted is a value type on purpose: it never hands out a pointer into
// shared storage, so copying one is always safe.
type Tainted struct {
	s      string
	origin bool
}

// Trusted wraps a string known to originate from the host program or from
// a backend's own returned data, never from message/header content or the
// network.
func Trusted(s string) Tainted { return Tainted{s: s} }

// FromOrigin wraps a string and records whether the caller considers it
// untrusted.
func FromOrigin(s string, tainted bool) Tainted { return Tainted{s: s, origin: tainted} }

// String returns the underlying string regardless of taint; this is the
// only way to read the bytes back out, mirroring the narrowness of the
// original predicate-plus-copy API.
func (t Tainted) String() string { return t.s }

// IsTainted reports whether the value derives from untrusted input.
func (t Tainted) IsTainted() bool { return t.origin }

// Untaint returns a copy of the value with the taint marker cleared.
//
// Call sites should only do this once a backend (or the engine itself) has
// validated the string, e.g. because it was the literal result of a
// successful lookup.
func (t Tainted) Untaint() Tainted { return Tainted{s: t.s} }
