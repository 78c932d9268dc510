// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

/*
Package metrics exposes Prometheus instrumentation for the aggregator.

Metrics are registered on the default registry through promauto and served
at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Outbound fetches:
  - contestwatch_fetch_requests_total{host,outcome}
  - contestwatch_fetch_retries_total{host}
  - contestwatch_fetch_duration_seconds{host}

Sources and reconciliation:
  - contestwatch_source_events_total{platform}
  - contestwatch_source_failures_total{platform}
  - contestwatch_reconcile_upserts_total{platform}
  - contestwatch_reconcile_errors_total{platform}
  - contestwatch_prune_deleted_total
  - contestwatch_refresh_duration_seconds{category}
  - contestwatch_refresh_last_success_timestamp{category}

Snapshot cache:
  - contestwatch_snapshot_hits_total
  - contestwatch_snapshot_misses_total
  - contestwatch_snapshot_events

Circuit breakers:
  - contestwatch_circuit_breaker_state{name}  (0=closed, 1=half-open, 2=open)
  - contestwatch_circuit_breaker_transitions_total{name,from,to}
  - contestwatch_circuit_breaker_requests_total{name,result}

HTTP API:
  - contestwatch_api_requests_total{method,endpoint,status}
  - contestwatch_api_request_duration_seconds{method,endpoint}
  - contestwatch_api_active_requests
*/
package metrics
