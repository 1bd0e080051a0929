package kubectl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"github.com/giantswarm/eks-kubectl-handler/internal/instrumentation"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

// Defaults for Config.
const (
	DefaultBinary      = "kubectl"
	DefaultMaxAttempts = 3
)

const kubeconfigFlag = "--kubeconfig"

// Config configures an Executor.
type Config struct {
	// Binary is the kubectl executable name or path (default: kubectl).
	Binary string

	// KubeconfigPath is passed as --kubeconfig on every invocation. Required.
	KubeconfigPath string

	// MaxAttempts bounds the attempts per Execute call (default: 3).
	MaxAttempts int

	// Classifier decides which failures are retried (default: Classify).
	Classifier Classifier

	// Runner spawns the process (default: an ExecRunner without search path).
	Runner Runner

	// Logger receives attempt logs (default: slog.Default()).
	Logger *slog.Logger

	// Metrics records invocations. May be nil.
	Metrics *instrumentation.Metrics
}

// Executor runs kubectl commands with bounded retries on transient failures.
type Executor struct {
	binary         string
	kubeconfigPath string
	maxAttempts    int
	classify       Classifier
	runner         Runner
	logger         *slog.Logger
	metrics        *instrumentation.Metrics
}

// NewExecutor creates an Executor from cfg.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.KubeconfigPath == "" {
		return nil, fmt.Errorf("kubeconfig path is required")
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Classifier == nil {
		cfg.Classifier = Classify
	}
	if cfg.Runner == nil {
		cfg.Runner = NewExecRunner(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Executor{
		binary:         cfg.Binary,
		kubeconfigPath: cfg.KubeconfigPath,
		maxAttempts:    cfg.MaxAttempts,
		classify:       cfg.Classifier,
		runner:         cfg.Runner,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}, nil
}

// MaxAttempts returns the attempt ceiling of a single Execute call.
func (e *Executor) MaxAttempts() int {
	return e.maxAttempts
}

// Execute runs kubectl with args, prefixed by --kubeconfig. It returns the
// exact output of the first successful attempt. Transient failures are
// retried without delay until MaxAttempts is reached; any other failure is
// returned immediately. Failures are always *CommandError.
func (e *Executor) Execute(ctx context.Context, args ...string) ([]byte, error) {
	operation := operationName(args)
	logger := logging.WithOperation(e.logger, "kubectl."+operation)

	ctx, span := instrumentation.StartKubectlSpan(ctx, operation, e.maxAttempts)
	defer span.End()

	argv := make([]string, 0, len(args)+2)
	argv = append(argv, kubeconfigFlag, e.kubeconfigPath)
	argv = append(argv, args...)

	var (
		output   []byte
		attempts int
	)
	backoff := wait.Backoff{Steps: e.maxAttempts}
	err := retry.OnError(backoff, isTransient, func() error {
		attempts++
		start := time.Now()
		out, runErr := e.runner.Run(ctx, e.binary, argv)
		elapsed := time.Since(start)

		if runErr == nil {
			e.metrics.RecordKubectlInvocation(ctx, operation, instrumentation.StatusSuccess, elapsed)
			output = out
			return nil
		}

		cmdErr := &CommandError{
			Args:     args,
			Output:   out,
			Attempts: attempts,
			Kind:     e.classify(out),
			Err:      runErr,
		}
		if cmdErr.Transient() {
			e.metrics.RecordKubectlInvocation(ctx, operation, instrumentation.StatusTransient, elapsed)
			if attempts < e.maxAttempts {
				e.metrics.RecordKubectlRetry(ctx, operation)
			}
			logger.Info(fmt.Sprintf("kubectl timed out, retries left: %d", e.maxAttempts-attempts),
				logging.Attempt(attempts),
				logging.Duration(elapsed),
				logging.Status(logging.StatusRetry))
			instrumentation.AddSpanEvent(span, "transient failure", attribute.Int(instrumentation.SpanAttrAttempt, attempts))
		} else {
			e.metrics.RecordKubectlInvocation(ctx, operation, instrumentation.StatusError, elapsed)
		}
		return cmdErr
	})

	if err == nil {
		logger.Info("kubectl succeeded",
			slog.String("output", string(output)),
			logging.Attempt(attempts),
			logging.Status(logging.StatusSuccess))
		instrumentation.SetSpanSuccess(span)
		return output, nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Transient() {
		cmdErr.Exhausted = true
	}
	logger.Warn("kubectl failed",
		logging.Attempt(attempts),
		logging.SanitizedErr(err),
		logging.Status(logging.StatusError))
	instrumentation.SetSpanError(span, err)
	return nil, err
}
