package kubectl

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   ErrorKind
	}{
		{
			name:   "dial timeout is transient",
			output: "Unable to connect to the server: dial tcp 10.0.0.1:443: i/o timeout",
			want:   KindTransient,
		},
		{
			name:   "forbidden is terminal",
			output: `Error from server (Forbidden): services "x" is forbidden`,
			want:   KindTerminal,
		},
		{
			name:   "not found is terminal for the executor",
			output: `Error from server (NotFound): services "x" not found`,
			want:   KindTerminal,
		},
		{
			name:   "empty output is terminal",
			output: "",
			want:   KindTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify([]byte(tt.output)))
		})
	}
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "terminal", KindTerminal.String())
}

func TestIsNotFound(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsNotFound(errors.New("forbidden")))
	assert.True(t, IsNotFound(&CommandError{
		Args:   []string{"get", "svc", "x"},
		Output: []byte(`Error from server (NotFound): services "x" not found`),
	}))
}

func TestCommandError(t *testing.T) {
	exitErr := &exec.ExitError{}

	t.Run("terminal", func(t *testing.T) {
		err := &CommandError{
			Args:     []string{"patch", "deployment/coredns"},
			Output:   []byte("error: unable to parse patch\n"),
			Attempts: 1,
			Kind:     KindTerminal,
			Err:      exitErr,
		}
		assert.Equal(t, "kubectl patch failed: error: unable to parse patch", err.Error())
		assert.ErrorIs(t, err, ErrCommandFailed)
		assert.NotErrorIs(t, err, ErrRetriesExhausted)
		assert.False(t, err.Transient())

		var target *exec.ExitError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("exhausted", func(t *testing.T) {
		err := &CommandError{
			Args:      []string{"get", "svc"},
			Output:    []byte("i/o timeout"),
			Attempts:  3,
			Kind:      KindTransient,
			Exhausted: true,
		}
		assert.Equal(t, "operation failed after 3 attempts: i/o timeout", err.Error())
		assert.ErrorIs(t, err, ErrRetriesExhausted)
		assert.ErrorIs(t, err, ErrCommandFailed)
	})

	t.Run("empty output falls back to process error", func(t *testing.T) {
		err := &CommandError{
			Args: []string{"get"},
			Err:  errors.New(`exec: "kubectl": executable file not found in $PATH`),
		}
		assert.Contains(t, err.Error(), "executable file not found")
	})
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Args: []string{"get", "-n", "default", "svc", "x"}}
	assert.Equal(t, "timeout waiting for output from kubectl command: [get -n default svc x] (last_error=None)", err.Error())
	assert.ErrorIs(t, err, ErrPollTimeout)

	err.LastError = "kubectl get failed: NotFound"
	assert.Contains(t, err.Error(), "(last_error=kubectl get failed: NotFound)")
}

func TestOperationName(t *testing.T) {
	assert.Equal(t, "get", operationName([]string{"get", "-n", "x"}))
	assert.Equal(t, "patch", operationName([]string{"--v=2", "patch"}))
	assert.Equal(t, "command", operationName(nil))
}
