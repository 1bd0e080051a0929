package kubectl

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/eks-kubectl-handler/internal/instrumentation"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

// DefaultPollInterval is the pause between poll attempts.
const DefaultPollInterval = 10 * time.Second

// ErrorPolicy decides which Execute failures a poll survives.
type ErrorPolicy string

const (
	// PolicyLenient keeps polling after any failure.
	PolicyLenient ErrorPolicy = "lenient"
	// PolicyStrict keeps polling only after NotFound failures.
	PolicyStrict ErrorPolicy = "strict"
)

// UnquoteMode decides how the quotes around a jsonpath result are removed.
type UnquoteMode string

const (
	// UnquoteLiteral drops the first and last character unconditionally.
	// Outputs shorter than two characters become empty.
	UnquoteLiteral UnquoteMode = "literal"
	// UnquoteStrict removes one matching pair of ' or " and leaves
	// anything else untouched.
	UnquoteStrict UnquoteMode = "strict"
)

// ParseErrorPolicy validates a textual ErrorPolicy. Empty means lenient.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLenient:
		return PolicyLenient, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("invalid poll error policy %q (want %s or %s)", s, PolicyLenient, PolicyStrict)
	}
}

// ParseUnquoteMode validates a textual UnquoteMode. Empty means literal.
func ParseUnquoteMode(s string) (UnquoteMode, error) {
	switch UnquoteMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnquoteLiteral:
		return UnquoteLiteral, nil
	case UnquoteStrict:
		return UnquoteStrict, nil
	default:
		return "", fmt.Errorf("invalid unquote mode %q (want %s or %s)", s, UnquoteLiteral, UnquoteStrict)
	}
}

// Unquote removes the quotes kubectl prints around a '{...}' jsonpath template.
func (m UnquoteMode) Unquote(s string) string {
	if m == UnquoteStrict {
		trimmed := strings.TrimSpace(s)
		if len(trimmed) >= 2 {
			first, last := trimmed[0], trimmed[len(trimmed)-1]
			if first == last && (first == '\'' || first == '"') {
				return trimmed[1 : len(trimmed)-1]
			}
		}
		return s
	}

	runes := []rune(s)
	if len(runes) < 2 {
		return ""
	}
	return string(runes[1 : len(runes)-1])
}

// Commander executes a single kubectl command. *Executor implements it.
type Commander interface {
	Execute(ctx context.Context, args ...string) ([]byte, error)
}

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Interval between attempts (default: 10s).
	Interval time.Duration

	// ErrorPolicy (default: lenient).
	ErrorPolicy ErrorPolicy

	// Unquote (default: literal).
	Unquote UnquoteMode

	// Logger (default: slog.Default()).
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *instrumentation.Metrics
}

// Poller waits for a kubectl command to print a non-empty value.
type Poller struct {
	commander Commander
	interval  time.Duration
	policy    ErrorPolicy
	unquote   UnquoteMode
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// NewPoller creates a Poller running its commands through commander.
func NewPoller(commander Commander, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.ErrorPolicy == "" {
		cfg.ErrorPolicy = PolicyLenient
	}
	if cfg.Unquote == "" {
		cfg.Unquote = UnquoteLiteral
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		commander: commander,
		interval:  cfg.Interval,
		policy:    cfg.ErrorPolicy,
		unquote:   cfg.Unquote,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// WaitForOutput runs args immediately and then again a full interval after
// each attempt ends, until the unquoted output is non-empty, returning that
// value. When timeout elapses first it returns a *TimeoutError carrying the
// last failure message.
//
// Under PolicyStrict a failure other than NotFound is returned as is.
// A command that is still running when the deadline passes is allowed to
// finish and its value is still returned.
func (p *Poller) WaitForOutput(ctx context.Context, args []string, timeout time.Duration) (string, error) {
	logger := logging.WithOperation(p.logger, "kubectl.poll")
	if timeout <= 0 {
		return "", &TimeoutError{Args: args}
	}

	ctx, span := instrumentation.StartSpan(ctx, "kubectl.poll",
		attribute.String(instrumentation.SpanAttrOperation, operationName(args)))
	defer span.End()

	var (
		value   string
		lastErr string
		polls   int
	)
	condition := func(_ context.Context) (bool, error) {
		polls++
		out, err := p.commander.Execute(ctx, args...)
		if err != nil {
			lastErr = err.Error()
			if IsNotFound(err) {
				p.metrics.RecordPollAttempt(ctx, instrumentation.PollResultNotFound)
				logger.Info("resource not found yet", logging.Attempt(polls))
				return false, nil
			}
			p.metrics.RecordPollAttempt(ctx, instrumentation.PollResultError)
			if p.policy == PolicyStrict {
				return false, err
			}
			logger.Warn("poll attempt failed", logging.Attempt(polls), logging.SanitizedErr(err))
			return false, nil
		}

		v := p.unquote.Unquote(string(out))
		if v == "" {
			p.metrics.RecordPollAttempt(ctx, instrumentation.PollResultEmpty)
			return false, nil
		}
		p.metrics.RecordPollAttempt(ctx, instrumentation.PollResultValue)
		value = v
		return true, nil
	}

	// The pause starts when an attempt returns, so slow kubectl calls never
	// shorten it.
	deadlineCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	backoff := wait.Backoff{Duration: p.interval, Factor: 1, Steps: math.MaxInt32}
	err := wait.ExponentialBackoffWithContext(deadlineCtx, backoff, condition)
	if err == nil {
		instrumentation.SetSpanSuccess(span)
		return value, nil
	}
	if !wait.Interrupted(err) {
		instrumentation.SetSpanError(span, err)
		return "", err
	}
	if ctx.Err() != nil {
		err = fmt.Errorf("polling kubectl %s interrupted after %d attempts: %w", operationName(args), polls, ctx.Err())
		instrumentation.SetSpanError(span, err)
		return "", err
	}

	logger.Warn("timed out waiting for kubectl output",
		slog.Int("polls", polls),
		logging.Duration(timeout))
	timeoutErr := &TimeoutError{Args: args, LastError: lastErr}
	instrumentation.SetSpanError(span, timeoutErr)
	return "", timeoutErr
}
