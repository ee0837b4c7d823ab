package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ObservationsTotal counts observation batches accepted by the engine.
	ObservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recall_observations_total",
		Help: "Observation batches processed.",
	})

	// ConceptsCreatedTotal counts first-time concept creations.
	ConceptsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recall_concepts_created_total",
		Help: "Concepts created on first observation.",
	})

	// EdgesStrengthenedTotal counts edge creations and weight bumps by kind.
	EdgesStrengthenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_edges_strengthened_total",
		Help: "Edges created or strengthened, by kind.",
	}, []string{"kind"})

	// ReviewsTotal counts recorded reviews by algorithm and outcome.
	ReviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_reviews_total",
		Help: "Reviews recorded, by algorithm and outcome.",
	}, []string{"algorithm", "outcome"})

	// RemindersTotal counts fired reminders by reason.
	RemindersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recall_reminders_total",
		Help: "Reminders fired, by reason.",
	}, []string{"reason"})

	// RemindersSuppressedTotal counts reminders withheld by the cooldown.
	RemindersSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recall_reminders_suppressed_total",
		Help: "Reminders suppressed by the cooldown window.",
	})

	// EmbeddingFailuresTotal counts failed embedding calls.
	EmbeddingFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recall_embedding_failures_total",
		Help: "Embedding provider failures (observations degrade to no edges).",
	})

	// DueConcepts tracks how many concepts are currently due for review.
	DueConcepts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recall_due_concepts",
		Help: "Concepts at or past their next review time.",
	})

	// SweepDuration observes how long decay sweeps take.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recall_sweep_duration_seconds",
		Help:    "Duration of decay sweep passes.",
		Buckets: prometheus.DefBuckets,
	})
)
