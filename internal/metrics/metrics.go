// Package metrics exposes the engine's prometheus collectors. Collectors
// are process-wide and registered once; all per-game labels are bounded
// (trigger and effect names come from closed sets, never from user input).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatches counts dispatch cycles per trigger.
	Dispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lycaon",
		Name:      "dispatches_total",
		Help:      "Dispatch cycles started, by trigger.",
	}, []string{"trigger"})

	// HandlerFailures counts effect handler errors, isolated per ability.
	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lycaon",
		Name:      "handler_failures_total",
		Help:      "Effect handler failures, by effect kind.",
	}, []string{"effect"})

	// ConfirmedKills counts kills that survived conflict resolution.
	ConfirmedKills = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lycaon",
		Name:      "confirmed_kills_total",
		Help:      "Kills confirmed by conflict resolution.",
	})

	// DepthTruncations counts death cascades cut off at the recursion cap.
	DepthTruncations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lycaon",
		Name:      "depth_truncations_total",
		Help:      "Recursive death dispatches truncated at the depth cap.",
	})

	// Rollbacks counts transactions rolled back on persistence failure.
	Rollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lycaon",
		Name:      "rollbacks_total",
		Help:      "Transactions rolled back after a persistence failure.",
	})

	// LockWait observes how long transactions waited for their game lock.
	LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lycaon",
		Name:      "lock_wait_seconds",
		Help:      "Time spent waiting to acquire a game lock.",
		Buckets:   prometheus.DefBuckets,
	})

	// ForcedReleases counts lock holds broken by the liveness timeout.
	ForcedReleases = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lycaon",
		Name:      "forced_releases_total",
		Help:      "Game locks force-released after the hold timeout.",
	})
)
