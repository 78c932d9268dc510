// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contestwatch"

var (
	// Outbound fetch metrics
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Upstream HTTP fetches by final outcome",
		},
		[]string{"host", "outcome"}, // ok, rate_limited, network, not_found, status, shape
	)

	FetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Retries issued after 429 or transient network errors",
		},
		[]string{"host"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of a fetch including retries",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"host"},
	)

	// Source adapter metrics
	SourceEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_events_total",
			Help:      "Events returned by each source adapter",
		},
		[]string{"platform"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Adapter runs that contributed nothing because of an error or panic",
		},
		[]string{"platform"},
	)

	// Reconciler metrics
	ReconcileUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_upserts_total",
			Help:      "Events upserted into the store",
		},
		[]string{"platform"},
	)

	ReconcileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_errors_total",
			Help:      "Per-event upsert failures",
		},
		[]string{"platform"},
	)

	PruneDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prune_deleted_total",
			Help:      "Events removed by retention pruning",
		},
	)

	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full refresh cycle",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"category"},
	)

	RefreshLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_last_success_timestamp",
			Help:      "Unix time of the last refresh with at least one healthy source",
		},
		[]string{"category"},
	)

	// Snapshot cache metrics
	SnapshotHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_hits_total",
			Help:      "Hackathon reads served from a fresh snapshot",
		},
	)

	SnapshotMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_misses_total",
			Help:      "Hackathon reads that triggered a refetch",
		},
	)

	SnapshotEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_events",
			Help:      "Events held in the current hackathon snapshot",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Breaker state per upstream host (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Breaker state changes",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_requests_total",
			Help:      "Requests seen by a breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "HTTP API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "HTTP API latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_active_requests",
			Help:      "In-flight HTTP API requests",
		},
	)

	// Refresh notifications
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Refresh notifications published by outcome",
		},
		[]string{"outcome"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Refresh notifications handled by consumer",
		},
		[]string{"handler"},
	)
)

// RecordFetch records the outcome of one logical fetch.
func RecordFetch(host, outcome string, duration time.Duration) {
	FetchRequests.WithLabelValues(host, outcome).Inc()
	FetchDuration.WithLabelValues(host).Observe(duration.Seconds())
}

func RecordFetchRetry(host string) {
	FetchRetries.WithLabelValues(host).Inc()
}

// RecordSource records one adapter run.
func RecordSource(platform string, events int, failed bool) {
	if failed {
		SourceFailures.WithLabelValues(platform).Inc()
		return
	}
	SourceEvents.WithLabelValues(platform).Add(float64(events))
}

func RecordReconcile(platform string, upserted, errs int) {
	ReconcileUpserts.WithLabelValues(platform).Add(float64(upserted))
	if errs > 0 {
		ReconcileErrors.WithLabelValues(platform).Add(float64(errs))
	}
}

func RecordPrune(deleted int) {
	PruneDeleted.Add(float64(deleted))
}

// RecordRefresh records a finished refresh. ok is false only when every
// source failed.
func RecordRefresh(category string, duration time.Duration, ok bool) {
	RefreshDuration.WithLabelValues(category).Observe(duration.Seconds())
	if ok {
		RefreshLastSuccess.WithLabelValues(category).Set(float64(time.Now().Unix()))
	}
}

func RecordSnapshot(hit bool) {
	if hit {
		SnapshotHits.Inc()
	} else {
		SnapshotMisses.Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

func RecordEventPublished(ok bool) {
	if ok {
		EventsPublished.WithLabelValues("ok").Inc()
	} else {
		EventsPublished.WithLabelValues("error").Inc()
	}
}

func RecordEventConsumed(handler string) {
	EventsConsumed.WithLabelValues(handler).Inc()
}
