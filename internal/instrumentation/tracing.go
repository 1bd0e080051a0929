package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the handler module.
const TracerName = "github.com/giantswarm/eks-kubectl-handler"

// Span attribute keys.
const (
	SpanAttrHandler      = "cfn.handler"
	SpanAttrRequestType  = "cfn.request_type"
	SpanAttrCluster      = "eks.cluster"
	SpanAttrClusterType  = "eks.cluster_type"
	SpanAttrNamespace    = "k8s.namespace"
	SpanAttrResourceType = "k8s.resource_type"
	SpanAttrResourceName = "k8s.resource_name"
	SpanAttrOperation    = "kubectl.operation"
	SpanAttrAttempt      = "kubectl.attempt"
	SpanAttrMaxAttempts  = "kubectl.max_attempts"
)

// SpanAttributeBuilder collects the attributes describing the target object.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{}
}

// WithCluster adds the cluster name and its classified type.
func (b *SpanAttributeBuilder) WithCluster(clusterName string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs,
		attribute.String(SpanAttrCluster, clusterName),
		attribute.String(SpanAttrClusterType, ClassifyClusterName(clusterName)),
	)
	return b
}

// WithNamespace adds the Kubernetes namespace attribute.
func (b *SpanAttributeBuilder) WithNamespace(namespace string) *SpanAttributeBuilder {
	if namespace != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrNamespace, namespace))
	}
	return b
}

// WithResource adds Kubernetes resource attributes.
func (b *SpanAttributeBuilder) WithResource(resourceType, resourceName string) *SpanAttributeBuilder {
	if resourceType != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrResourceType, resourceType))
	}
	if resourceName != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrResourceName, resourceName))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// tracer resolves the global provider on every call so a provider installed
// after package init is picked up.
func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartSpan starts an internal span. Callers end it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartHandlerSpan starts the root span of a custom-resource invocation.
func StartHandlerSpan(ctx context.Context, handler, requestType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, "handler."+handler,
		trace.WithAttributes(
			attribute.String(SpanAttrHandler, handler),
			attribute.String(SpanAttrRequestType, requestType)),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartKubectlSpan starts a span around a retrying kubectl execution.
func StartKubectlSpan(ctx context.Context, operation string, maxAttempts int) (context.Context, trace.Span) {
	return tracer().Start(ctx, "kubectl."+operation,
		trace.WithAttributes(
			attribute.String(SpanAttrOperation, operation),
			attribute.Int(SpanAttrMaxAttempts, maxAttempts),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError marks span failed with err. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddSpanEvent records a named event such as a retry.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID of the span in ctx, or "" outside a
// recorded trace.
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
