// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package metrics exposes Prometheus instrumentation for the telemetry
// pipeline: TCP ingestion, deduplication, batch persistence, broadcast
// throttling, websocket fan-out, and the query API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	IngestSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_sessions_active",
			Help: "Current number of open device TCP sessions",
		},
	)

	IngestSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_sessions_total",
			Help: "Total number of accepted device TCP sessions",
		},
	)

	IngestMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total number of ingested messages by outcome",
		},
		[]string{"outcome"}, // "accepted", "rejected", "duplicate"
	)

	IngestSessionTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_session_timeouts_total",
			Help: "Total number of sessions closed for inactivity",
		},
	)

	// Batch persistence metrics
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_flush_duration_seconds",
			Help:    "Duration of batch flushes to storage in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FlushBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_flush_size",
			Help:    "Number of reports per batch flush",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	FlushErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "batch_flush_errors_total",
			Help: "Total number of failed batch flushes",
		},
	)

	BatchPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "batch_pending_reports",
			Help: "Reports buffered in memory awaiting flush",
		},
	)

	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Broadcast metrics
	BroadcastFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_frames_total",
			Help: "Total number of frames pushed to the live feed",
		},
		[]string{"kind"}, // "location"
	)

	BroadcastDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_dropped_total",
			Help: "Positions discarded because they arrived inside a throttle window",
		},
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active websocket subscribers",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of websocket messages sent",
		},
	)

	WSSlowClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_clients_dropped_total",
			Help: "Subscribers dropped because their send buffer filled",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// System metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// Ingest outcomes for IngestMessagesTotal.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeDuplicate = "duplicate"
)

// RecordMessage records one ingested message by outcome.
func RecordMessage(outcome string) {
	IngestMessagesTotal.WithLabelValues(outcome).Inc()
}

// RecordFlush records one batch flush attempt.
func RecordFlush(size int, duration time.Duration, err error) {
	FlushDuration.Observe(duration.Seconds())
	FlushBatchSize.Observe(float64(size))
	if err != nil {
		FlushErrors.Inc()
	}
}

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetBreakerState maps a breaker state string to its gauge value.
func SetBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(v)
}
