package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "journal"

var (
	// GenerationAttempts counts inference calls by model tier and outcome
	// (complete, incomplete, empty, error).
	GenerationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generation_attempts_total",
			Help:      "Inference calls made by the generation pipeline.",
		},
		[]string{"tier", "outcome"},
	)

	// Generations counts finished pipeline runs by subject kind and terminal state.
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generations_total",
			Help:      "Generation requests by terminal state.",
		},
		[]string{"kind", "state"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of generation requests that reached the inference service.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 120, 180},
		},
		[]string{"kind"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "cache_lookups_total",
			Help:      "Completion cache lookups by result.",
		},
		[]string{"result"},
	)

	CreditsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "credits_consumed_total",
			Help:      "AI credits deducted from ledgers.",
		},
		[]string{"source"},
	)

	CreditsRefilled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "accounts_refilled_total",
			Help:      "Free accounts whose monthly allotment was restored.",
		},
	)

	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Payment provider events by type and outcome.",
		},
		[]string{"type", "outcome"},
	)
)
