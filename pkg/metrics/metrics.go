package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "formr"

var (
	// HTTP

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Templates

	// TemplateOperations counts template service calls by operation and outcome code.
	TemplateOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_operations_total",
			Help:      "Template operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// ControlsReconciled counts control rows touched by template updates.
	ControlsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "controls_reconciled_total",
			Help:      "Controls inserted, updated or deleted by template reconciliation",
		},
		[]string{"action"},
	)
)
