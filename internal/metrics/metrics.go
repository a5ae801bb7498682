// Package metrics exposes the service's Prometheus collectors on the
// default registry; cmd/server serves them via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScoringRuns counts scoring runs by outcome (ok, not_found, error).
	ScoringRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "scoring",
		Name:      "runs_total",
		Help:      "Scoring runs by outcome.",
	}, []string{"outcome"})

	// ScoringDuration observes the wall time of a full scoring run,
	// including storage reads and the final upsert.
	ScoringDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tally",
		Subsystem: "scoring",
		Name:      "duration_seconds",
		Help:      "Wall time of a full scoring run.",
		Buckets:   prometheus.DefBuckets,
	})

	// DispatchedEvents counts score events handed to notifiers by outcome.
	DispatchedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "dispatch",
		Name:      "events_total",
		Help:      "Score events delivered to notifiers by outcome.",
	}, []string{"notifier", "outcome"})

	// DroppedEvents counts score events dropped because the queue was full.
	DroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tally",
		Subsystem: "dispatch",
		Name:      "dropped_total",
		Help:      "Score events dropped due to a full dispatch queue.",
	})
)
