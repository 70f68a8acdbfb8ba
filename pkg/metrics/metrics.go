// Package metrics wraps a node.Node's accept-path outcomes with
// Prometheus counters. It is optional instrumentation: nothing in
// pkg/transport or pkg/node depends on it, and a nil *Counters is
// still a fully functional no-op observer.
package metrics

import (
	"github.com/fleetwire/uavcan"
	"github.com/prometheus/client_golang/prometheus"
)

// Counters implements node.Observer, exposing transfer and error
// counts broken down by transfer kind.
type Counters struct {
	transfers *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

// NewCounters creates and registers the counters against reg. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() in tests to avoid collisions between runs.
func NewCounters(reg prometheus.Registerer) *Counters {
	c := &Counters{
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uavcan",
			Name:      "transfers_total",
			Help:      "Transfers successfully reassembled and dispatched, by kind.",
		}, []string{"kind"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "uavcan",
			Name:      "errors_total",
			Help:      "Malformed or rejected frames seen on the accept path, by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(c.transfers, c.errors)
	return c
}

// Observe implements node.Observer.
func (c *Counters) Observe(kind uavcan.Kind, isError bool) {
	if c == nil {
		return
	}
	if isError {
		c.errors.WithLabelValues(kind.String()).Inc()
		return
	}
	c.transfers.WithLabelValues(kind.String()).Inc()
}
