// Package observability exposes Prometheus metrics for the automation
// loop. All recording methods are nil-safe so packages can carry an
// optional *Metrics without guarding every call site.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the feedloop collectors.
type Metrics struct {
	registry *prometheus.Registry

	cycles       prometheus.Counter
	likes        prometheus.Counter
	comments     prometheus.Counter
	staleDropped prometheus.Counter
	genRequests  prometheus.Counter
	genFallbacks prometheus.Counter
	genLatency   prometheus.Histogram
}

// New constructs a Metrics with its own registry.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedloop",
			Subsystem: "scheduler",
			Name:      "cycles_total",
			Help:      "Engagement cycles run.",
		}),
		likes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedloop",
			Subsystem: "engine",
			Name:      "likes_total",
			Help:      "Likes verified as applied.",
		}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedloop",
			Subsystem: "engine",
			Name:      "comments_total",
			Help:      "Comments submitted.",
		}),
		staleDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedloop",
			Subsystem: "queue",
			Name:      "stale_dropped_total",
			Help:      "Queued actions discarded past the staleness window.",
		}),
		genRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedloop",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation requests issued.",
		}),
		genFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feedloop",
			Subsystem: "generation",
			Name:      "fallbacks_total",
			Help:      "Replies substituted with a fallback phrase.",
		}),
		genLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feedloop",
			Subsystem: "generation",
			Name:      "latency_seconds",
			Help:      "Latency of generation round trips.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		m.cycles, m.likes, m.comments, m.staleDropped,
		m.genRequests, m.genFallbacks, m.genLatency,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncCycles() {
	if m != nil {
		m.cycles.Inc()
	}
}

func (m *Metrics) IncLikes() {
	if m != nil {
		m.likes.Inc()
	}
}

func (m *Metrics) IncComments() {
	if m != nil {
		m.comments.Inc()
	}
}

func (m *Metrics) IncStaleDropped() {
	if m != nil {
		m.staleDropped.Inc()
	}
}

func (m *Metrics) IncGenRequests() {
	if m != nil {
		m.genRequests.Inc()
	}
}

func (m *Metrics) IncGenFallbacks() {
	if m != nil {
		m.genFallbacks.Inc()
	}
}

func (m *Metrics) ObserveGenLatency(seconds float64) {
	if m != nil {
		m.genLatency.Observe(seconds)
	}
}
