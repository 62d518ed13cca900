package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "memoryvista", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "memoryvista", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// Workflow outcomes, labelled by operation (transition|change_request|update) and result kind.
	WorkflowOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "memoryvista", Name: "workflow_outcomes_total", Help: "Workflow operations by operation and outcome."},
		[]string{"operation", "outcome"},
	)
	WorkflowConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "memoryvista", Name: "workflow_conflicts_total", Help: "Conditional writes that lost a race and were retried or surfaced."},
	)
	PermissionDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "memoryvista", Name: "permission_decisions_total", Help: "Permission oracle decisions by result (allow|deny|error)."},
		[]string{"result"},
	)
	GrantCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "memoryvista", Name: "grant_cache_lookups_total", Help: "Grant cache lookups by result (hit|miss|error)."},
		[]string{"result"},
	)
	PublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "memoryvista", Name: "publish_failures_total", Help: "Post-commit snapshot publish/unpublish failures."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(WorkflowOutcomes)
	reg.MustRegister(WorkflowConflicts)
	reg.MustRegister(PermissionDecisions)
	reg.MustRegister(GrantCacheLookups)
	reg.MustRegister(PublishFailures)
}
