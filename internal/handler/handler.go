package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/eks-kubectl-handler/internal/instrumentation"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubeconfig"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubectl"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

// DefaultKubeconfigDir holds the kubeconfig written on every invocation.
const DefaultKubeconfigDir = "/tmp"

// Response is returned to the custom-resource provider.
type Response struct {
	Data map[string]interface{} `json:"Data,omitempty"`
}

// ExecutorFactory returns the kubectl Commander bound to a kubeconfig.
type ExecutorFactory func(kubeconfigPath string) (kubectl.Commander, error)

// NewExecutorFactory returns an ExecutorFactory building a kubectl.Executor
// from base with the kubeconfig path filled in.
func NewExecutorFactory(base kubectl.Config) ExecutorFactory {
	return func(kubeconfigPath string) (kubectl.Commander, error) {
		cfg := base
		cfg.KubeconfigPath = kubeconfigPath
		executor, err := kubectl.NewExecutor(cfg)
		if err != nil {
			return nil, err
		}
		return executor, nil
	}
}

// Config is shared by both handlers.
type Config struct {
	// KubeconfigDir receives the kubeconfig file (default: /tmp).
	KubeconfigDir string

	// Kubeconfig tunes the generated kubeconfig.
	Kubeconfig kubeconfig.Options

	// NewExecutor builds the kubectl Commander. Required.
	NewExecutor ExecutorFactory

	// Poller configures polling in the get handler.
	Poller kubectl.PollerConfig

	// Logger (default: slog.Default()).
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *instrumentation.Metrics
}

// base carries what both handlers need for one invocation.
type base struct {
	name          string
	kubeconfigDir string
	kubeconfig    kubeconfig.Options
	newExecutor   ExecutorFactory
	logger        *slog.Logger
	metrics       *instrumentation.Metrics
}

func newBase(name string, cfg Config) (base, error) {
	if cfg.NewExecutor == nil {
		return base{}, fmt.Errorf("executor factory is required")
	}
	if cfg.KubeconfigDir == "" {
		cfg.KubeconfigDir = DefaultKubeconfigDir
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return base{
		name:          name,
		kubeconfigDir: cfg.KubeconfigDir,
		kubeconfig:    cfg.Kubeconfig,
		newExecutor:   cfg.NewExecutor,
		logger:        logging.WithOperation(cfg.Logger, "handler."+name),
		metrics:       cfg.Metrics,
	}, nil
}

// KubeconfigPath returns where the handler writes its kubeconfig.
func (b *base) KubeconfigPath() string {
	return kubeconfig.Path(b.kubeconfigDir)
}

// begin starts the span and logs the incoming event.
func (b *base) begin(ctx context.Context, event cfn.Event) (context.Context, trace.Span, *slog.Logger) {
	ctx, span := instrumentation.StartHandlerSpan(ctx, b.name, string(event.RequestType))
	logger := b.logger.With(logging.RequestType(string(event.RequestType)))
	if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
		logger = logger.With(slog.String("trace_id", traceID))
	}
	logger.Info("received custom resource event",
		slog.String("request_id", event.RequestID),
		slog.String("logical_resource_id", event.LogicalResourceID),
		slog.String("physical_resource_id", event.PhysicalResourceID),
		slog.Any("properties", Properties(event.ResourceProperties).Masked()))
	return ctx, span, logger
}

// finish records the outcome of an invocation.
func (b *base) finish(ctx context.Context, span trace.Span, logger *slog.Logger, requestType cfn.RequestType, cluster string, start time.Time, err error) {
	elapsed := time.Since(start)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
		logger.Error("custom resource request failed",
			logging.Duration(elapsed),
			logging.SanitizedErr(err),
			logging.Status(logging.StatusError))
	} else {
		instrumentation.SetSpanSuccess(span)
		logger.Info("custom resource request completed",
			logging.Duration(elapsed),
			logging.Status(logging.StatusSuccess))
	}
	b.metrics.RecordHandlerRequest(ctx, b.name, string(requestType), cluster, status, elapsed)
}

// connect writes the kubeconfig for cluster and returns a Commander using it.
func (b *base) connect(logger *slog.Logger, cluster ClusterProperties) (kubectl.Commander, error) {
	cfg, err := kubeconfig.Build(cluster.KubeconfigParams(), b.kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("building kubeconfig: %w", err)
	}
	path := b.KubeconfigPath()
	if err := kubeconfig.Write(path, cfg); err != nil {
		return nil, err
	}
	logger.Debug("kubeconfig written",
		slog.String("path", path),
		logging.Host(cluster.Endpoint),
		logging.RoleHash(cluster.RoleARN))

	commander, err := b.newExecutor(path)
	if err != nil {
		return nil, fmt.Errorf("creating kubectl executor: %w", err)
	}
	return commander, nil
}
