package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/giantswarm/eks-kubectl-handler/internal/handler"
	"github.com/giantswarm/eks-kubectl-handler/internal/instrumentation"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubeconfig"
	"github.com/giantswarm/eks-kubectl-handler/internal/kubectl"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

// handlerRuntime bundles what a handler command needs for its lifetime.
type handlerRuntime struct {
	logger   *slog.Logger
	provider *instrumentation.Provider
	config   handler.Config
}

// newHandlerRuntime validates cfg, sets up logging and instrumentation and
// assembles the handler.Config.
func newHandlerRuntime(ctx context.Context, cfg HandlerConfig, logOutput io.Writer) (*handlerRuntime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(logOutput, level)
	slog.SetDefault(logger)

	instrumentationConfig := instrumentation.DefaultConfig()
	instrumentationConfig.ServiceVersion = rootCmd.Version
	provider, err := instrumentation.NewProvider(ctx, instrumentationConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	if provider.Enabled() {
		logger.Info("OpenTelemetry instrumentation enabled",
			slog.String("metrics_exporter", instrumentationConfig.MetricsExporter),
			slog.String("tracing_exporter", instrumentationConfig.TracingExporter))
	}

	policy, _ := kubectl.ParseErrorPolicy(cfg.PollErrorPolicy)
	unquote, _ := kubectl.ParseUnquoteMode(cfg.UnquoteMode)
	metrics := provider.Metrics()

	return &handlerRuntime{
		logger:   logger,
		provider: provider,
		config: handler.Config{
			KubeconfigDir: cfg.KubeconfigDir,
			Kubeconfig: kubeconfig.Options{
				AuthenticatorCommand: cfg.AuthenticatorCommand,
				ExecAPIVersion:       cfg.ExecAPIVersion,
			},
			NewExecutor: handler.NewExecutorFactory(kubectl.Config{
				Binary:      cfg.KubectlBinary,
				MaxAttempts: cfg.MaxAttempts,
				Runner:      kubectl.NewExecRunner(cfg.searchPathList()),
				Logger:      logger,
				Metrics:     metrics,
			}),
			Poller: kubectl.PollerConfig{
				Interval:    cfg.PollInterval,
				ErrorPolicy: policy,
				Unquote:     unquote,
				Logger:      logger,
				Metrics:     metrics,
			},
			Logger:  logger,
			Metrics: metrics,
		},
	}, nil
}

// Shutdown flushes instrumentation. Errors are logged, not returned.
func (r *handlerRuntime) Shutdown(ctx context.Context) {
	if err := r.provider.Shutdown(ctx); err != nil {
		r.logger.Error("instrumentation shutdown failed", logging.Err(err))
	}
}
