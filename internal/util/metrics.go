package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders captured at intake",
	})

	OrdersDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_deleted_total",
		Help: "Total number of orders deleted with all projections",
	})

	SyncsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_syncs_total",
		Help: "Total number of successful fan-out synchronizations",
	})

	PropagationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_propagations_total",
		Help: "Total number of stage-to-aggregate propagations",
	})

	ColumnUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_column_updates_total",
		Help: "Total number of single-column edits",
	}, []string{"table", "column"})

	UrgentPromotedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "urgent_promoted_total",
		Help: "Total number of urgent upserts across promotion runs",
	})

	ResyncRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resync_rows_total",
		Help: "Total number of orders processed by bulk resync",
	}, []string{"result"})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_operation_errors_total",
		Help: "Total number of failed engine operations",
	}, []string{"operation", "kind"})

	OperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_operation_latency_seconds",
		Help:    "Latency of transactional engine operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	ConsumedMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_consumed_messages_total",
		Help: "Total number of consumed messages by outcome",
	}, []string{"topic", "result"})

	SchedulerRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Total number of scheduled job runs",
	}, []string{"job", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
