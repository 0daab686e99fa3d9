package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Evaluation metrics, registered on the default registry. Exposing them is
// the embedding application's concern.
var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarazu_evaluations_total",
			Help: "Total number of price evaluations by outcome",
		},
		[]string{"outcome"},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tarazu_evaluation_duration_seconds",
			Help:    "Price evaluation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	rulesMatchedPerEvaluation = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tarazu_rules_matched_per_evaluation",
			Help:    "Number of rules matched per evaluation",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	rulesetSelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tarazu_ruleset_selections_total",
			Help: "Ruleset selection outcomes by mode (pinned, conditional, default, none)",
		},
		[]string{"mode"},
	)

	formulaFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tarazu_formula_failures_total",
			Help: "Formula actions that failed and contributed zero",
		},
	)
)
