package orchestrator

import "github.com/prometheus/client_golang/prometheus"

var (
	reconcilePasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dcm",
		Subsystem: "reconcile",
		Name:      "passes_total",
		Help:      "Reconciliation passes, labeled by outcome.",
	}, []string{"outcome"})

	changesApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dcm",
		Subsystem: "reconcile",
		Name:      "changes_applied_total",
		Help:      "Changes successfully applied across all reconciliation passes.",
	})

	passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dcm",
		Subsystem: "reconcile",
		Name:      "pass_duration_seconds",
		Help:      "Wall-clock duration of one Load->Introspect->Plan->Execute pass.",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(reconcilePasses, changesApplied, passDuration)
}
