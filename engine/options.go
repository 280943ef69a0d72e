package engine

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/TomNewChao/exim-lookup/backend"
)

// Options configures a new Engine, grounded on the teacher's
// indexer.Options: a plain struct passed to the constructor, no flag or
// environment parsing inside the core itself.
type Options struct {
	// Registry is the backend directory this engine dispatches through.
	// Required.
	Registry *backend.Registry

	// MaxOpenFiles bounds the number of simultaneously open ABSFILE-kind
	// handles. Has a hard minimum of 1; values below that are raised to 1.
	MaxOpenFiles int

	// DeferOnTaint switches the quoting-safety check from log-and-continue
	// to defer-and-fail. Defaults to log-only.
	DeferOnTaint bool

	// Logger receives structured diagnostics (backend open/check
	// failures, eviction-starvation notices, quoting-safety warnings).
	// Defaults to slog.Default() if nil.
	Logger *slog.Logger

	// Registerer, if non-nil, receives this engine's Prometheus
	// collectors. Left nil, metrics are tracked internally but not
	// exported — the safe default for tests that construct many engines
	// against a shared global registry.
	Registerer prometheus.Registerer
}
