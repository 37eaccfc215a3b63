// Package metrics declares the Prometheus collectors shared by the gateway and the worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PushRequests counts Initiate outcomes: success, validation_error, config_error,
	// provider_error.
	PushRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stk_push_requests_total",
			Help: "Total number of STK push initiations by outcome",
		},
		[]string{"outcome"},
	)

	Callbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stk_callbacks_total",
			Help: "Total number of provider callbacks by resolved transaction status",
		},
		[]string{"status"},
	)

	// FinalizeResults counts finalize attempts: applied, duplicate, failed.
	FinalizeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stk_finalize_total",
			Help: "Total number of transaction finalize attempts by result",
		},
		[]string{"result"},
	)

	MpesaRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mpesa_request_duration_seconds",
			Help:    "Duration of calls to the M-Pesa API",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// SweeperChecks counts stale pending status queries: finalized, duplicate, still_pending,
	// query_failed.
	SweeperChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stk_sweeper_checks_total",
			Help: "Total number of status queries issued for stale pending transactions by result",
		},
		[]string{"result"},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_messages_published_total",
			Help: "Total number of outbox publish attempts by result",
		},
		[]string{"result"},
	)
)
