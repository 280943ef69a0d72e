package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/TomNewChao/exim-lookup"
)

// Registry is an ordered, process-independent directory of backend
// descriptors keyed by lowercase name.
//
// Tests should construct their own Registry rather than share a single
// process-global one, per the design note that independent engines should
// be instantiable side by side.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*Descriptor
	sorted []*Descriptor
	dirty  bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Descriptor)}
}

// Register adds d to the registry under its (lowercased) name.
//
// Register panics if the name is already registered, mirroring the
// teacher's matchers/registry.Register and updater/registry.Register
// idiom: duplicate registration is a programmer error caught at init time,
// not a runtime condition to recover from.
func (r *Registry) Register(d Descriptor) {
	name := strings.ToLower(d.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		panic("backend: duplicate registration: " + name)
	}
	d.Name = name
	cp := d
	r.byName[name] = &cp
	r.dirty = true
}

// rebuild refreshes the sorted slice used for binary search. Callers must
// hold r.mu.
func (r *Registry) rebuild() {
	if !r.dirty {
		return
	}
	r.sorted = r.sorted[:0]
	for _, d := range r.byName {
		r.sorted = append(r.sorted, d)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i].Name < r.sorted[j].Name })
	r.dirty = false
}

// FindType resolves name to a backend index by exact, binary-searched
// match against the registered (lowercase) names.
//
// Because Go strings carry their own length, a prefix such as "nis" never
// matches a longer registered name such as "nisplus": standard string
// ordering already sorts the shorter name before any string it is a
// prefix of, so an exact-equality check after the binary search gives the
// same specificity the source achieves by comparing a fixed byte count
// and then requiring the stored name's length to match exactly.
//
// If name is registered but the backend has no Find implementation, the
// call fails with a distinct "not available" diagnostic rather than
// ErrType's generic "unknown" message.
func (r *Registry) FindType(name string) (int, error) {
	lname := strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuild()

	n := len(r.sorted)
	idx := sort.Search(n, func(i int) bool { return r.sorted[i].Name >= lname })
	if idx >= n || r.sorted[idx].Name != lname {
		return -1, &lookupcore.Error{
			Kind:    lookupcore.ErrType,
			Op:      "FindType",
			Message: fmt.Sprintf("unknown lookup type %q", name),
		}
	}
	if !r.sorted[idx].Available() {
		return -1, &lookupcore.Error{
			Kind:    lookupcore.ErrType,
			Op:      "FindType",
			Message: fmt.Sprintf("%s: not available (not in the binary)", lname),
		}
	}
	return idx, nil
}

// Descriptor returns the descriptor at idx, as returned by FindType or
// encoded in a ParsedType. Index validity is the caller's responsibility;
// both producers of indices are this package.
func (r *Registry) Descriptor(idx int) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rebuild()
	if idx < 0 || idx >= len(r.sorted) {
		return nil
	}
	return r.sorted[idx]
}

// Tidy calls every registered descriptor's Tidy function once, in name
// order, regardless of whether that backend was ever opened. ctx is
// accepted for symmetry with the rest of the package's signatures, even
// though TidyFunc itself is synchronous and context-free: a backend that
// needs cancellation plumbs it through its own global state instead.
func (r *Registry) Tidy(_ context.Context) {
	r.mu.Lock()
	r.rebuild()
	descs := append([]*Descriptor(nil), r.sorted...)
	r.mu.Unlock()

	for _, d := range descs {
		if d.Tidy != nil {
			d.Tidy()
		}
	}
}
