package kubectl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var jsonpathArgs = []string{"get", "-n", "default", "service", "ingress-nginx", "-o=jsonpath='{.status.loadBalancer.ingress[0].hostname}'"}

func newTestPoller(commander Commander, cfg PollerConfig) *Poller {
	if cfg.Interval == 0 {
		cfg.Interval = time.Millisecond
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPoller(commander, cfg)
}

func notFound() result {
	return result{err: &CommandError{
		Args:   jsonpathArgs,
		Output: []byte(`Error from server (NotFound): services "ingress-nginx" not found`),
		Kind:   KindTerminal,
	}}
}

func forbidden() result {
	return result{err: &CommandError{
		Args:   jsonpathArgs,
		Output: []byte(`Error from server (Forbidden): services "ingress-nginx" is forbidden`),
		Kind:   KindTerminal,
	}}
}

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(&fakeCommander{}, PollerConfig{})
	assert.Equal(t, DefaultPollInterval, p.interval)
	assert.Equal(t, PolicyLenient, p.policy)
	assert.Equal(t, UnquoteLiteral, p.unquote)
	assert.NotNil(t, p.logger)
}

func TestWaitForOutput_ReturnsFirstValue(t *testing.T) {
	commander := &fakeCommander{results: []result{
		ok(""),
		ok("''"),
		ok("'a1b2.elb.amazonaws.com'"),
		ok("'later'"),
	}}
	p := newTestPoller(commander, PollerConfig{})

	value, err := p.WaitForOutput(context.Background(), jsonpathArgs, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "a1b2.elb.amazonaws.com", value)
	assert.Equal(t, 3, commander.callCount())
}

func TestWaitForOutput_FirstAttemptIsImmediate(t *testing.T) {
	commander := &fakeCommander{results: []result{ok("'value'")}}
	p := newTestPoller(commander, PollerConfig{Interval: time.Hour})

	value, err := p.WaitForOutput(context.Background(), jsonpathArgs, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "value", value)
	assert.Equal(t, 1, commander.callCount())
}

func TestWaitForOutput_SleepsFullIntervalAfterSlowAttempts(t *testing.T) {
	const (
		interval = 60 * time.Millisecond
		delay    = 40 * time.Millisecond
	)
	commander := &slowCommander{
		fakeCommander: fakeCommander{results: []result{
			notFound(),
			ok(""),
			forbidden(),
			ok("'ready'"),
		}},
		delay: delay,
	}
	p := newTestPoller(commander, PollerConfig{Interval: interval})

	value, err := p.WaitForOutput(context.Background(), jsonpathArgs, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "ready", value)
	require.Len(t, commander.starts, 4)

	for i := 1; i < len(commander.starts); i++ {
		gap := commander.starts[i].Sub(commander.ends[i-1])
		assert.GreaterOrEqual(t, gap, interval, "pause before attempt %d", i+1)
	}
}

func TestWaitForOutput_SlowAttemptPastDeadlineTimesOut(t *testing.T) {
	commander := &slowCommander{
		fakeCommander: fakeCommander{results: []result{notFound()}},
		delay:         30 * time.Millisecond,
	}
	p := newTestPoller(commander, PollerConfig{Interval: 100 * time.Millisecond})

	_, err := p.WaitForOutput(context.Background(), jsonpathArgs, 200*time.Millisecond)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Contains(t, timeoutErr.LastError, "NotFound")
	assert.Equal(t, 2, commander.callCount())
}

func TestWaitForOutput_NotFoundKeepsPolling(t *testing.T) {
	for _, policy := range []ErrorPolicy{PolicyLenient, PolicyStrict} {
		t.Run(string(policy), func(t *testing.T) {
			commander := &fakeCommander{results: []result{
				notFound(),
				notFound(),
				ok("'ready'"),
			}}
			p := newTestPoller(commander, PollerConfig{ErrorPolicy: policy})

			value, err := p.WaitForOutput(context.Background(), jsonpathArgs, 5*time.Second)
			require.NoError(t, err)
			assert.Equal(t, "ready", value)
			assert.Equal(t, 3, commander.callCount())
		})
	}
}

func TestWaitForOutput_ErrorPolicy(t *testing.T) {
	t.Run("lenient swallows other failures", func(t *testing.T) {
		commander := &fakeCommander{results: []result{forbidden(), ok("'ok'")}}
		p := newTestPoller(commander, PollerConfig{ErrorPolicy: PolicyLenient})

		value, err := p.WaitForOutput(context.Background(), jsonpathArgs, 5*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "ok", value)
		assert.Equal(t, 2, commander.callCount())
	})

	t.Run("strict returns other failures", func(t *testing.T) {
		commander := &fakeCommander{results: []result{forbidden(), ok("'ok'")}}
		p := newTestPoller(commander, PollerConfig{ErrorPolicy: PolicyStrict})

		_, err := p.WaitForOutput(context.Background(), jsonpathArgs, 5*time.Second)
		require.Error(t, err)
		assert.Equal(t, 1, commander.callCount())
		assert.ErrorIs(t, err, ErrCommandFailed)
		assert.NotErrorIs(t, err, ErrPollTimeout)
		assert.Contains(t, err.Error(), "Forbidden")
	})
}

func TestWaitForOutput_Timeout(t *testing.T) {
	t.Run("carries last error", func(t *testing.T) {
		commander := &fakeCommander{results: []result{notFound()}}
		p := newTestPoller(commander, PollerConfig{Interval: 10 * time.Millisecond})

		_, err := p.WaitForOutput(context.Background(), jsonpathArgs, 50*time.Millisecond)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPollTimeout)
		assert.GreaterOrEqual(t, commander.callCount(), 2)

		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, jsonpathArgs, timeoutErr.Args)
		assert.Contains(t, timeoutErr.LastError, "NotFound")
		assert.Contains(t, err.Error(), "timeout waiting for output from kubectl command")
	})

	t.Run("without failures reports None", func(t *testing.T) {
		commander := &fakeCommander{results: []result{ok("''")}}
		p := newTestPoller(commander, PollerConfig{Interval: 10 * time.Millisecond})

		_, err := p.WaitForOutput(context.Background(), jsonpathArgs, 30*time.Millisecond)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPollTimeout)
		assert.Contains(t, err.Error(), "(last_error=None)")
	})

	t.Run("non-positive timeout fails without running", func(t *testing.T) {
		commander := &fakeCommander{results: []result{ok("'value'")}}
		p := newTestPoller(commander, PollerConfig{})

		_, err := p.WaitForOutput(context.Background(), jsonpathArgs, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPollTimeout)
		assert.Equal(t, 0, commander.callCount())
	})
}

func TestWaitForOutput_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commander := &cancelingCommander{cancel: cancel}
	p := newTestPoller(commander, PollerConfig{Interval: 10 * time.Millisecond})

	_, err := p.WaitForOutput(ctx, jsonpathArgs, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, 1, commander.calls)
}

// cancelingCommander cancels the caller's context on its first call.
type cancelingCommander struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancelingCommander) Execute(_ context.Context, _ ...string) ([]byte, error) {
	c.calls++
	c.cancel()
	return []byte("''"), nil
}

func TestUnquote(t *testing.T) {
	tests := []struct {
		name  string
		mode  UnquoteMode
		input string
		want  string
	}{
		{name: "literal single quotes", mode: UnquoteLiteral, input: "'abc'", want: "abc"},
		{name: "literal empty quotes", mode: UnquoteLiteral, input: "''", want: ""},
		{name: "literal strips any outer characters", mode: UnquoteLiteral, input: "abc", want: "b"},
		{name: "literal single character", mode: UnquoteLiteral, input: "x", want: ""},
		{name: "literal empty", mode: UnquoteLiteral, input: "", want: ""},
		{name: "literal multibyte", mode: UnquoteLiteral, input: "'héllo'", want: "héllo"},
		{name: "strict single quotes", mode: UnquoteStrict, input: "'abc'", want: "abc"},
		{name: "strict double quotes", mode: UnquoteStrict, input: `"abc"`, want: "abc"},
		{name: "strict trailing newline", mode: UnquoteStrict, input: "'abc'\n", want: "abc"},
		{name: "strict unquoted", mode: UnquoteStrict, input: "abc", want: "abc"},
		{name: "strict mismatched", mode: UnquoteStrict, input: `'abc"`, want: `'abc"`},
		{name: "strict empty quotes", mode: UnquoteStrict, input: "''", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.Unquote(tt.input))
		})
	}
}

func TestParseErrorPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    ErrorPolicy
		wantErr bool
	}{
		{input: "", want: PolicyLenient},
		{input: "lenient", want: PolicyLenient},
		{input: "STRICT", want: PolicyStrict},
		{input: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseErrorPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnquoteMode(t *testing.T) {
	got, err := ParseUnquoteMode("")
	require.NoError(t, err)
	assert.Equal(t, UnquoteLiteral, got)

	got, err = ParseUnquoteMode(" strict ")
	require.NoError(t, err)
	assert.Equal(t, UnquoteStrict, got)

	_, err = ParseUnquoteMode("smart")
	assert.Error(t, err)
}

func TestWaitForOutput_RecordsPollSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	commander := &fakeCommander{results: []result{notFound()}}
	p := newTestPoller(commander, PollerConfig{Interval: 5 * time.Millisecond})

	_, err := p.WaitForOutput(context.Background(), jsonpathArgs, 20*time.Millisecond)
	require.ErrorIs(t, err, ErrPollTimeout)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "kubectl.poll", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
