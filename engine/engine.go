// Package engine implements the dispatch engine, open-database cache,
// result cache, and arena lifecycle described by the specification: the
// single API a caller uses to open a named database, look a key up
// (optionally with partial/wildcard fallback), and tidy up.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/TomNewChao/exim-lookup/backend"
	"github.com/TomNewChao/exim-lookup/internal/arena"
)

// Engine is one instance of the dispatch engine.
//
// The zero value is not usable; construct one with New. Per the design
// note ("Tests should instantiate multiple independent engines"), an
// Engine carries all of its own state — registry, open-handle map, LRU
// chain, arena, error/defer flags — so many engines can coexist in one
// process.
//
// Engine assumes single-threaded, cooperative use, matching the
// specification's concurrency model: it takes no locks, and callers must
// not call its methods concurrently from multiple goroutines.
type Engine struct {
	reg          *backend.Registry
	maxOpenFiles int
	deferOnTaint bool
	logger       *slog.Logger
	metrics      *metricSet

	nodes         map[string]*node
	top, bot      *node
	openFileCount int

	ar     *arena.Arena
	mark   arena.Mark
	marked bool

	lastError string
	deferred  bool
}

// New constructs an Engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("engine: Registry must not be nil")
	}
	max := opts.MaxOpenFiles
	if max < 1 {
		max = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := newMetricSet()
	if err := m.register(opts.Registerer); err != nil {
		return nil, fmt.Errorf("engine: registering metrics: %w", err)
	}
	return &Engine{
		reg:          opts.Registry,
		maxOpenFiles: max,
		deferOnTaint: opts.DeferOnTaint,
		logger:       logger,
		metrics:      m,
		nodes:        make(map[string]*node),
		ar:           arena.New(),
	}, nil
}

// LastError returns the diagnostic message set by the most recent failed
// Open or Find call. It is cleared at the start of every Find.
func (e *Engine) LastError() string { return e.lastError }

// Deferred reports whether the most recent Find call deferred rather than
// definitely missing.
func (e *Engine) Deferred() bool { return e.deferred }

// OpenFileCount returns the number of open ABSFILE-kind handles. This
// includes handles opened but not yet linked onto the LRU chain by a
// first Find, so it can exceed the chain's length.
func (e *Engine) OpenFileCount() int { return e.openFileCount }

func compositeKey(backendIndex int, filename string) string {
	if len(filename) > 254 {
		filename = filename[:254]
	}
	return fmt.Sprintf("%d\x00%s", backendIndex, filename)
}
