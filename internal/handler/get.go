package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/giantswarm/eks-kubectl-handler/internal/instrumentation"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubectl"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

// ValueKey is the data key holding the value read by the get handler.
const ValueKey = "Value"

// GetHandler reads a jsonpath value from a Kubernetes object.
type GetHandler struct {
	base
	poller kubectl.PollerConfig
}

// NewGetHandler creates a GetHandler.
func NewGetHandler(cfg Config) (*GetHandler, error) {
	b, err := newBase(instrumentation.OperationGet, cfg)
	if err != nil {
		return nil, err
	}
	poller := cfg.Poller
	if poller.Logger == nil {
		poller.Logger = b.logger
	}
	if poller.Metrics == nil {
		poller.Metrics = cfg.Metrics
	}
	return &GetHandler{base: b, poller: poller}, nil
}

// Handle serves one custom-resource event. Create and Update poll until the
// jsonpath yields a value or TimeoutSeconds elapses. Delete does nothing.
func (h *GetHandler) Handle(ctx context.Context, event cfn.Event) (resp Response, err error) {
	ctx, span, logger := h.begin(ctx, event)
	defer span.End()

	var cluster string
	start := time.Now()
	defer func() {
		h.finish(ctx, span, logger, event.RequestType, cluster, start, err)
	}()

	if err := validateRequestType(event.RequestType); err != nil {
		return Response{}, err
	}

	props, err := ParseGetProperties(event.ResourceProperties)
	if err != nil {
		return Response{}, err
	}
	cluster = props.Cluster.Name
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithCluster(props.Cluster.Name).
		WithNamespace(props.ObjectNamespace).
		WithResource(props.ObjectType, props.ObjectName).
		Build()...)
	logger = logging.WithCluster(logger, props.Cluster.Name).With(
		logging.Namespace(props.ObjectNamespace),
		logging.ResourceType(props.ObjectType),
		logging.ResourceName(props.ObjectName))

	commander, err := h.connect(logger, props.Cluster)
	if err != nil {
		return Response{}, err
	}

	if event.RequestType == cfn.RequestDelete {
		return Response{}, nil
	}

	poller := kubectl.NewPoller(commander, h.poller)
	value, err := poller.WaitForOutput(ctx, props.Args(), props.Timeout)
	if err != nil {
		return Response{}, fmt.Errorf("reading %s from %s/%s: %w", props.JSONPath, props.ObjectType, props.ObjectName, err)
	}
	return Response{Data: map[string]interface{}{ValueKey: value}}, nil
}
