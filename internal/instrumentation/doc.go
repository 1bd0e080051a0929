// Package instrumentation provides OpenTelemetry instrumentation for the
// kubectl custom-resource handlers.
//
// # Metrics
//
// Handler Metrics:
//   - handler_requests_total: Counter of custom-resource requests by handler, request_type, cluster_type, status
//   - handler_request_duration_seconds: Histogram of handler durations
//
// kubectl Metrics:
//   - kubectl_invocations_total: Counter of kubectl process runs by operation and status
//   - kubectl_invocation_duration_seconds: Histogram of kubectl process durations
//   - kubectl_retries_total: Counter of transient failures that were retried
//   - kubectl_poll_attempts_total: Counter of poll iterations by result
//
// # Exporters
//
// A Lambda function has no scrape endpoint, so the Prometheus exporter writes
// into a private registry that is pushed to a Pushgateway on Shutdown. OTLP
// and stdout exporters flush on Shutdown as well.
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: stdout)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - PROMETHEUS_PUSHGATEWAY_URL: Pushgateway used by the prometheus exporter
package instrumentation
