package engine

// Handle identifies one opened database within one Engine.
//
// It is a small wrapper token rather than a raw pointer, per the design
// note that a target-language port should expose an index/token instead
// of an interior pointer so the backing map stays free to move entries
// around internally. Two Handle values compare equal exactly when they
// name the same (backend, filename) pair, which is what gives callers
// handle stability: opening the same pair twice, with no intervening
// Tidyup, always yields an equal Handle.
type Handle struct {
	key string
}

// Zero reports whether h is the zero Handle, i.e. Open never succeeded.
func (h Handle) Zero() bool { return h.key == "" }

// node is the engine's internal record for one Handle.
type node struct {
	key          string
	backendIndex int
	filename     string // the untainted filename Open resolved this handle with
	conn         any    // nil once force-closed by LRU eviction
	results      map[string]cacheEntry

	// LRU links. Valid only while the backend is ABSFILE-kind and conn
	// is non-nil; a freshly opened node has both nil until its first
	// Find call promotes it (see Engine.promote).
	prev, next *node
}
