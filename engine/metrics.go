package engine

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/prometheus/client_golang/prometheus"
)

// tracer is shared by every Engine, mirroring the teacher's
// libindex/metrics.go package-level tracer: it is stateless, so sharing it
// across independently constructed engines is safe.
var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/TomNewChao/exim-lookup/engine")
}

// metricSet holds one Engine's Prometheus collectors.
//
// Unlike the teacher's datastore/postgres/store_metrics.go, these are not
// package-level promauto vars: the design note that tests should
// instantiate multiple independent engines means multiple metricSets can
// be alive at once, and promauto registers into the global default
// registerer, which would panic on the second Engine's construction.
// Instead each Engine builds its own collectors and registers them only if
// the caller supplied a Registerer.
type metricSet struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	openFiles prometheus.Gauge
}

func newMetricSet() *metricSet {
	return &metricSet{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lookupcore",
			Subsystem: "engine",
			Name:      "result_cache_hits_total",
			Help:      "Lookup probes answered from the per-handle result cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lookupcore",
			Subsystem: "engine",
			Name:      "result_cache_misses_total",
			Help:      "Lookup probes that invoked a backend.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lookupcore",
			Subsystem: "engine",
			Name:      "lru_evictions_total",
			Help:      "Open handles force-closed to stay within max_open_files.",
		}),
		openFiles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lookupcore",
			Subsystem: "engine",
			Name:      "open_files",
			Help:      "Current count of open ABSFILE-kind handles.",
		}),
	}
}

func (m *metricSet) register(reg prometheus.Registerer) error {
	if reg == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{m.hits, m.misses, m.evictions, m.openFiles} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
