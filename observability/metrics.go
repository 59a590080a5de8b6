package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Live channel metrics
	ConnectionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatchat_ws_connections_opened_total",
			Help: "Total live connections accepted",
		},
	)

	ConnectionsRefused = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatchat_ws_connections_refused_total",
			Help: "Total live connections refused before upgrade",
		},
		[]string{"reason"},
	)

	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatchat_ws_events_received_total",
			Help: "Total inbound live channel events",
		},
		[]string{"event"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatchat_ws_events_dropped_total",
			Help: "Total inbound frames discarded",
		},
		[]string{"reason"}, // "rate_limited", "malformed"
	)

	SlowConsumers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatchat_ws_slow_consumers_total",
			Help: "Total connections closed because their send buffer was full",
		},
	)

	// Business metrics
	MessageMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatchat_message_mutations_total",
			Help: "Total message mutations by outcome",
		},
		[]string{"operation", "outcome"}, // operation: create, edit, delete
	)

	Broadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatchat_broadcast_deliveries_total",
			Help: "Total events enqueued to connections",
		},
		[]string{"event"},
	)

	ModerationHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatchat_moderation_hits_total",
			Help: "Total censored words by detected language",
		},
		[]string{"lang"},
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatchat_store_latency_seconds",
			Help:    "Message store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		},
		[]string{"operation"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatchat_active_sessions",
			Help: "Registered live sessions",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatchat_active_rooms",
			Help: "Rooms with at least one member",
		},
	)

	ProcessRSS = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatchat_process_rss_bytes",
			Help: "Resident memory of the server process",
		},
	)

	ProcessCPU = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatchat_process_cpu_percent",
			Help: "CPU usage of the server process",
		},
	)
)
