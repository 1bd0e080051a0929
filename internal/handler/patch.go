package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/cfn"

	"github.com/giantswarm/eks-kubectl-handler/internal/instrumentation"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

// PatchHandler applies and restores a patch on a Kubernetes resource.
type PatchHandler struct {
	base
}

// NewPatchHandler creates a PatchHandler.
func NewPatchHandler(cfg Config) (*PatchHandler, error) {
	b, err := newBase(instrumentation.OperationPatch, cfg)
	if err != nil {
		return nil, err
	}
	return &PatchHandler{base: b}, nil
}

// Handle serves one custom-resource event. Create and Update apply
// ApplyPatchJson, Delete applies RestorePatchJson. The patch is a single
// kubectl call; a failed patch is not rolled back.
func (h *PatchHandler) Handle(ctx context.Context, event cfn.Event) (resp Response, err error) {
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

	props, err := ParsePatchProperties(event.ResourceProperties)
	if err != nil {
		return Response{}, err
	}
	cluster = props.Cluster.Name
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().
		WithCluster(props.Cluster.Name).
		WithNamespace(props.ResourceNamespace).
		WithResource("", props.ResourceName).
		Build()...)
	logger = logging.WithCluster(logger, props.Cluster.Name).With(
		logging.Namespace(props.ResourceNamespace),
		logging.ResourceName(props.ResourceName))

	payload := props.ApplyPatchJSON
	if event.RequestType == cfn.RequestDelete {
		payload = props.RestorePatchJSON
	}

	commander, err := h.connect(logger, props.Cluster)
	if err != nil {
		return Response{}, err
	}

	logger.Info("patching resource",
		slog.String("patch_type", props.PatchType),
		slog.String("payload", logging.SanitizePayload(payload)))
	if _, err := commander.Execute(ctx, props.Args(payload)...); err != nil {
		return Response{}, fmt.Errorf("patching %s: %w", props.ResourceName, err)
	}
	return Response{}, nil
}
