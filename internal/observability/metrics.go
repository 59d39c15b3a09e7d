package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ereg_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ereg_store_op_seconds",
			Help:    "Duration of registration store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "op"},
	)

	FinalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ereg_finalize_total",
			Help: "Payment finalizations by outcome",
		},
		[]string{"outcome"},
	)

	GatewayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ereg_gateway_failures_total",
			Help: "Failed payment gateway calls",
		},
		[]string{"gateway", "op"},
	)

	ExportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ereg_export_jobs_total",
			Help: "Spreadsheet export jobs by result",
		},
		[]string{"result"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ereg_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
