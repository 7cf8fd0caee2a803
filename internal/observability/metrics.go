package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LifecycleTransitions counts state-machine transitions by event
	// (submit, approve, reject, return).
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_lifecycle_transitions_total",
		Help: "Total borrow-request state transitions by event",
	}, []string{"event"})

	// LateFeesCreated counts late-fee payments created, by origin
	// (engine at return time, or reconciler repair).
	LateFeesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_late_fees_created_total",
		Help: "Total late-fee payments created by origin",
	}, []string{"origin"})

	// ReconcilerChecked counts records examined per divergence class.
	ReconcilerChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_reconciler_checked_total",
		Help: "Total records checked by the reconciler per divergence class",
	}, []string{"class"})

	// ReconcilerRepaired counts automatic repairs per divergence class.
	ReconcilerRepaired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_reconciler_repaired_total",
		Help: "Total automatic repairs performed by the reconciler per divergence class",
	}, []string{"class"})

	// ReconcilerFlagged counts records flagged for human review per class.
	ReconcilerFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_reconciler_flagged_total",
		Help: "Total records flagged for human review per divergence class",
	}, []string{"class"})

	// WebSocketBackpressureDrops counts dashboard messages dropped because a
	// client's send buffer was full or its channel already closed.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_websocket_backpressure_drops_total",
		Help: "Total websocket messages dropped due to backpressure",
	}, []string{"reason"})
)
