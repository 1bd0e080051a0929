package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrHandler     = "handler"
	attrRequestType = "request_type"
	attrCluster     = "cluster"
	attrClusterType = "cluster_type"
	attrStatus      = "status"
	attrOperation   = "operation"
	attrResult      = "result"
)

// durationBuckets covers a single kubectl run (sub-second) up to a full poll
// that waits several minutes for a value to appear.
var durationBuckets = []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 300.0, 900.0}

// Metrics provides methods for recording observability metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Handler metrics
	handlerRequestsTotal   metric.Int64Counter
	handlerRequestDuration metric.Float64Histogram

	// kubectl metrics
	kubectlInvocationsTotal   metric.Int64Counter
	kubectlInvocationDuration metric.Float64Histogram
	kubectlRetriesTotal       metric.Int64Counter
	kubectlPollAttemptsTotal  metric.Int64Counter

	// detailedLabels controls whether the full cluster name is included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.handlerRequestsTotal, err = meter.Int64Counter(
		"handler_requests_total",
		metric.WithDescription("Total number of custom-resource requests handled"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handler_requests_total counter: %w", err)
	}

	m.handlerRequestDuration, err = meter.Float64Histogram(
		"handler_request_duration_seconds",
		metric.WithDescription("Custom-resource request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handler_request_duration_seconds histogram: %w", err)
	}

	m.kubectlInvocationsTotal, err = meter.Int64Counter(
		"kubectl_invocations_total",
		metric.WithDescription("Total number of kubectl process invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_invocations_total counter: %w", err)
	}

	m.kubectlInvocationDuration, err = meter.Float64Histogram(
		"kubectl_invocation_duration_seconds",
		metric.WithDescription("kubectl process duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_invocation_duration_seconds histogram: %w", err)
	}

	m.kubectlRetriesTotal, err = meter.Int64Counter(
		"kubectl_retries_total",
		metric.WithDescription("Total number of kubectl invocations retried after a transient failure"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_retries_total counter: %w", err)
	}

	m.kubectlPollAttemptsTotal, err = meter.Int64Counter(
		"kubectl_poll_attempts_total",
		metric.WithDescription("Total number of poll iterations waiting for a kubectl value"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubectl_poll_attempts_total counter: %w", err)
	}

	return m, nil
}

// RecordHandlerRequest records one custom-resource request.
//
// CARDINALITY NOTE: the cluster name is reduced to a cluster_type unless
// detailed labels are enabled.
func (m *Metrics) RecordHandlerRequest(ctx context.Context, handler, requestType, clusterName, status string, duration time.Duration) {
	if m == nil || m.handlerRequestsTotal == nil || m.handlerRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrHandler, handler),
		attribute.String(attrRequestType, requestType),
		attribute.String(attrClusterType, ClassifyClusterName(clusterName)),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels {
		attrs = append(attrs, attribute.String(attrCluster, clusterName))
	}

	m.handlerRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.handlerRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordKubectlInvocation records a single kubectl process run.
func (m *Metrics) RecordKubectlInvocation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.kubectlInvocationsTotal == nil || m.kubectlInvocationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.kubectlInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.kubectlInvocationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordKubectlRetry records a transient failure that will be retried.
func (m *Metrics) RecordKubectlRetry(ctx context.Context, operation string) {
	if m == nil || m.kubectlRetriesTotal == nil {
		return
	}

	m.kubectlRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOperation, operation)))
}

// RecordPollAttempt records one poll iteration and its result
// (value, empty, not_found, error).
func (m *Metrics) RecordPollAttempt(ctx context.Context, result string) {
	if m == nil || m.kubectlPollAttemptsTotal == nil {
		return
	}

	m.kubectlPollAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
