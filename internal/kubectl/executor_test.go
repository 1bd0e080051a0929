package kubectl

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/giantswarm/eks-kubectl-handler/internal/instrumentation"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

const timeoutOutput = "Unable to connect to the server: dial tcp 10.0.0.1:443: i/o timeout"

func newTestExecutor(t *testing.T, runner Runner, logger *slog.Logger) *Executor {
	t.Helper()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e, err := NewExecutor(Config{
		KubeconfigPath: "/tmp/kubeconfig",
		Runner:         runner,
		Logger:         logger,
	})
	require.NoError(t, err)
	return e
}

func TestNewExecutor(t *testing.T) {
	t.Run("requires kubeconfig path", func(t *testing.T) {
		_, err := NewExecutor(Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kubeconfig path is required")
	})

	t.Run("defaults", func(t *testing.T) {
		e, err := NewExecutor(Config{KubeconfigPath: "/tmp/kubeconfig"})
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxAttempts, e.MaxAttempts())
		assert.Equal(t, DefaultBinary, e.binary)
		assert.NotNil(t, e.runner)
		assert.NotNil(t, e.classify)
	})

	t.Run("custom max attempts", func(t *testing.T) {
		e, err := NewExecutor(Config{KubeconfigPath: "/tmp/kubeconfig", MaxAttempts: 5})
		require.NoError(t, err)
		assert.Equal(t, 5, e.MaxAttempts())
	})
}

func TestExecute_Success(t *testing.T) {
	runner := &fakeRunner{results: []result{ok("deployment.apps/coredns patched\n")}}
	e := newTestExecutor(t, runner, nil)

	out, err := e.Execute(context.Background(), "patch", "deployment/coredns", "-n", "kube-system")
	require.NoError(t, err)
	assert.Equal(t, []byte("deployment.apps/coredns patched\n"), out)

	require.Equal(t, 1, runner.callCount())
	assert.Equal(t, "kubectl", runner.names[0])
	assert.Equal(t,
		[]string{"--kubeconfig", "/tmp/kubeconfig", "patch", "deployment/coredns", "-n", "kube-system"},
		runner.calls[0])
}

func TestExecute_RetriesTransientUntilExhausted(t *testing.T) {
	var buf bytes.Buffer
	runner := &fakeRunner{results: []result{fail(timeoutOutput)}}
	e := newTestExecutor(t, runner, logging.NewLogger(&buf, slog.LevelInfo))

	out, err := e.Execute(context.Background(), "get", "svc", "x")
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 3, runner.callCount())

	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, ErrCommandFailed)
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "i/o timeout")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.Attempts)
	assert.True(t, cmdErr.Exhausted)
	assert.Equal(t, []string{"get", "svc", "x"}, cmdErr.Args)

	logs := buf.String()
	assert.Contains(t, logs, "kubectl timed out, retries left: 2")
	assert.Contains(t, logs, "kubectl timed out, retries left: 1")
	assert.Contains(t, logs, "kubectl timed out, retries left: 0")
}

func TestExecute_TransientThenSuccess(t *testing.T) {
	runner := &fakeRunner{results: []result{
		fail(timeoutOutput),
		ok("value"),
	}}
	e := newTestExecutor(t, runner, nil)

	out, err := e.Execute(context.Background(), "get", "svc")
	require.NoError(t, err)
	assert.Equal(t, "value", string(out))
	assert.Equal(t, 2, runner.callCount())
}

func TestExecute_TerminalFailureIsNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{
			name:   "forbidden",
			output: `Error from server (Forbidden): deployments.apps "coredns" is forbidden`,
		},
		{
			name:   "not found",
			output: `Error from server (NotFound): deployments.apps "coredns" not found`,
		},
		{
			name:   "no output",
			output: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{results: []result{fail(tt.output)}}
			e := newTestExecutor(t, runner, nil)

			_, err := e.Execute(context.Background(), "patch", "deployment/coredns")
			require.Error(t, err)
			assert.Equal(t, 1, runner.callCount())
			assert.ErrorIs(t, err, ErrCommandFailed)
			assert.NotErrorIs(t, err, ErrRetriesExhausted)

			var cmdErr *CommandError
			require.ErrorAs(t, err, &cmdErr)
			assert.Equal(t, KindTerminal, cmdErr.Kind)
			assert.Equal(t, 1, cmdErr.Attempts)
			assert.Equal(t, tt.output, string(cmdErr.Output))
		})
	}
}

func TestExecute_TerminalAfterTransient(t *testing.T) {
	runner := &fakeRunner{results: []result{
		fail(timeoutOutput),
		fail("error: the server doesn't have a resource type \"foo\""),
	}}
	e := newTestExecutor(t, runner, nil)

	_, err := e.Execute(context.Background(), "get", "foo")
	require.Error(t, err)
	assert.Equal(t, 2, runner.callCount())
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "doesn't have a resource type")
}

func TestExecute_CustomClassifier(t *testing.T) {
	runner := &fakeRunner{results: []result{fail("TLS handshake timeout")}}
	e, err := NewExecutor(Config{
		KubeconfigPath: "/tmp/kubeconfig",
		MaxAttempts:    2,
		Runner:         runner,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Classifier: func(output []byte) ErrorKind {
			if strings.Contains(string(output), "handshake timeout") {
				return KindTransient
			}
			return KindTerminal
		},
	})
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "get", "nodes")
	require.Error(t, err)
	assert.Equal(t, 2, runner.callCount())
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Contains(t, err.Error(), "operation failed after 2 attempts")
}

func TestExecute_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := instrumentation.NewMetrics(provider.Meter("test"), false)
	require.NoError(t, err)

	runner := &fakeRunner{results: []result{fail(timeoutOutput)}}
	e, err := NewExecutor(Config{
		KubeconfigPath: "/tmp/kubeconfig",
		Runner:         runner,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:        metrics,
	})
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "get", "svc")
	require.Error(t, err)

	assert.Equal(t, int64(3), sumCounter(t, reader, "kubectl_invocations_total"))
	assert.Equal(t, int64(2), sumCounter(t, reader, "kubectl_retries_total"))
}

// sumCounter adds up every data point of an int64 counter.
func sumCounter(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}
