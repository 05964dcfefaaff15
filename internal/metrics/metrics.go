// Package metrics exposes Prometheus counters for the coach pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TurnsStarted counts streaming turns opened against the model.
	TurnsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coach_turns_started_total",
		Help: "Streaming chat turns started.",
	})

	// TurnsCompleted counts turns that reached a complete terminal state.
	TurnsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coach_turns_completed_total",
		Help: "Streaming chat turns finished successfully.",
	})

	// TurnsErrored counts turns forced to the error state (transport failure,
	// cancellation, malformed tool arguments, unknown tool name).
	TurnsErrored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coach_turns_errored_total",
		Help: "Streaming chat turns that ended in an error state.",
	})

	// ApprovalsStaged counts pending approvals created, by type.
	ApprovalsStaged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coach_approvals_staged_total",
		Help: "Pending approvals staged from finalized tool calls.",
	}, []string{"type"})

	// ApprovalDecisions counts approve/reject transitions, by outcome.
	ApprovalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coach_approval_decisions_total",
		Help: "User decisions recorded on pending approvals.",
	}, []string{"outcome"})

	// Executions counts materializations, by approval type and result.
	Executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coach_executions_total",
		Help: "Approved payload materializations.",
	}, []string{"type", "result"})
)
