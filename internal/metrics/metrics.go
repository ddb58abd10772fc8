// Package metrics is the additive observability layer the domain
// stack wires github.com/prometheus/client_golang into: build
// duration, indexed-entry counts and search latency per root, kept
// alongside, never instead of, the lock-free atomics status surface
// the actor exposes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns its own prometheus.Registry rather than registering
// into the global DefaultRegisterer, so a process embedding more than
// one Manager (or a test suite constructing many) never hits a
// duplicate-registration panic. A nil *Recorder is valid: every method
// is a no-op on a nil receiver, so callers that don't want metrics can
// pass nil straight through instead of threading an enabled flag.
type Recorder struct {
	registry *prometheus.Registry

	buildDuration  *prometheus.HistogramVec
	indexedEntries *prometheus.GaugeVec
	searchLatency  *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its counters/histograms/gauges
// registered into a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fsindex",
			Name:      "build_duration_seconds",
			Help:      "Duration of a full index build (walk + tree construction), per root.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"root"}),
		indexedEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "fsindex",
			Name:      "indexed_entries",
			Help:      "Number of entries currently held in a root's index.",
		}, []string{"root"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fsindex",
			Name:      "search_latency_seconds",
			Help:      "Latency of a completed (possibly cancelled) search, per root.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"root"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fsindex",
			Name:      "errors_total",
			Help:      "Count of absorbed errors by kind, per root.",
		}, []string{"root", "kind"}),
	}
	reg.MustRegister(r.buildDuration, r.indexedEntries, r.searchLatency, r.errorsTotal)
	return r
}

// ObserveBuild records a completed build's duration and resulting
// entry count for root.
func (r *Recorder) ObserveBuild(root string, dur time.Duration, entries int) {
	if r == nil {
		return
	}
	r.buildDuration.WithLabelValues(root).Observe(dur.Seconds())
	r.indexedEntries.WithLabelValues(root).Set(float64(entries))
}

// ObserveSearch records one search's latency for root.
func (r *Recorder) ObserveSearch(root string, dur time.Duration) {
	if r == nil {
		return
	}
	r.searchLatency.WithLabelValues(root).Observe(dur.Seconds())
}

// IncError bumps the absorbed-error counter for root/kind.
func (r *Recorder) IncError(root, kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(root, kind).Inc()
}

// Gatherer exposes the underlying registry for an HTTP /metrics
// handler (promhttp.HandlerFor) without leaking the concrete registry
// type to callers that only need to gather.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}
