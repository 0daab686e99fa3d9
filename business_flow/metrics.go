package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	hydrationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tarazu_hydration_runs_total",
		Help: "Hydration runs by final status.",
	}, []string{"status"})

	hydrationRulesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tarazu_hydration_rules_created_total",
		Help: "Rules materialized from baseline fields.",
	})

	hydrationRulesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tarazu_hydration_rules_skipped_total",
		Help: "Rule emissions suppressed because a field was already hydrated.",
	})

	hydrationFieldFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tarazu_hydration_field_failures_total",
		Help: "Baseline fields that failed to hydrate and were skipped.",
	})

	catalogCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tarazu_catalog_cache_lookups_total",
		Help: "Active-catalog cache lookups by result.",
	}, []string{"result"})
)
