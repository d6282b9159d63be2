package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_refreshes_total",
		Help: "Total number of snapshot refreshes applied",
	})

	RefreshesDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_refreshes_discarded_total",
		Help: "Total number of refresh responses discarded as stale by generation",
	})

	RefreshesFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_refreshes_failed_total",
		Help: "Total number of failed snapshot refreshes",
	})

	RefreshLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersync_refresh_latency_seconds",
		Help:    "Latency of snapshot refreshes",
		Buckets: prometheus.DefBuckets,
	})

	OrdersSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_orders_submitted_total",
		Help: "Total number of orders submitted from the cart",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_orders_cancelled_total",
		Help: "Total number of orders cancelled by the owning user",
	})

	StatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_status_updates_total",
		Help: "Total number of status transitions requested",
	}, []string{"result"})

	PushEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_push_events_total",
		Help: "Total number of push events received",
	}, []string{"kind"})

	PushReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_push_reconnects_total",
		Help: "Total number of push channel reconnects",
	})

	PushDroppedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersync_push_dropped_events_total",
		Help: "Total number of push events with no registered handler",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ordersync_http_request_duration_seconds",
		Help:    "HTTP request latency of the agent surface",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersync_http_requests_total",
		Help: "Total number of HTTP requests to the agent surface",
	}, []string{"method", "path", "status"})
)
