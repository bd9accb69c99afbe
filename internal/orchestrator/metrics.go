package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	launchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribed_launches_total",
			Help: "Bot launch attempts by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)

	controlActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribed_control_actions_total",
			Help: "Control actions (pause, resume, stop) by outcome.",
		},
		[]string{"action", "outcome"},
	)

	reconcilePassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scribed_reconcile_passes_total",
			Help: "Completed reconcile passes.",
		},
	)

	reconcileFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scribed_reconcile_failed_bots_total",
			Help: "Bots marked failed after their backend resource was observed gone.",
		},
	)

	cleanupRemovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scribed_cleanup_removed_total",
			Help: "Dead registry entries pruned by cleanup.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		launchesTotal,
		controlActionsTotal,
		reconcilePassesTotal,
		reconcileFailedTotal,
		cleanupRemovedTotal,
	)
}
