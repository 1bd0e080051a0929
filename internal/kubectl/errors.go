package kubectl

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Output signatures used for classification.
const (
	transientSignature = "i/o timeout"
	notFoundSignature  = "NotFound"
)

// Sentinel errors. They can be checked using errors.Is().
var (
	// ErrCommandFailed matches every failed kubectl invocation.
	ErrCommandFailed = errors.New("kubectl command failed")

	// ErrRetriesExhausted indicates every attempt failed with a transient error.
	ErrRetriesExhausted = errors.New("kubectl retries exhausted")

	// ErrPollTimeout indicates no value appeared before the poll deadline.
	ErrPollTimeout = errors.New("timed out waiting for kubectl output")
)

// ErrorKind classifies a failed invocation.
type ErrorKind int

const (
	// KindTerminal failures are returned to the caller immediately.
	KindTerminal ErrorKind = iota
	// KindTransient failures are retried while attempts remain.
	KindTransient
)

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	default:
		return "terminal"
	}
}

// Classifier inspects the merged output of a failed run.
type Classifier func(output []byte) ErrorKind

// Classify is the default Classifier: output containing "i/o timeout" is
// transient, everything else is terminal.
func Classify(output []byte) ErrorKind {
	if bytes.Contains(output, []byte(transientSignature)) {
		return KindTransient
	}
	return KindTerminal
}

// IsNotFound reports whether err carries kubectl's NotFound signature.
func IsNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), notFoundSignature)
}

// CommandError is returned for a failed kubectl invocation. Output holds the
// merged stdout and stderr of the last attempt.
type CommandError struct {
	Args     []string
	Output   []byte
	Attempts int
	Kind     ErrorKind
	// Exhausted is set when every attempt failed with a transient error.
	Exhausted bool
	// Err is the process error of the last attempt (usually *exec.ExitError).
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	output := strings.TrimSpace(string(e.Output))
	if output == "" && e.Err != nil {
		output = e.Err.Error()
	}
	if e.Exhausted {
		return fmt.Sprintf("operation failed after %d attempts: %s", e.Attempts, output)
	}
	return fmt.Sprintf("kubectl %s failed: %s", operationName(e.Args), output)
}

// Unwrap exposes the matching sentinels and the process error to errors.Is().
func (e *CommandError) Unwrap() []error {
	errs := []error{ErrCommandFailed}
	if e.Exhausted {
		errs = append(errs, ErrRetriesExhausted)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Transient reports whether the failure was classified as transient.
func (e *CommandError) Transient() bool {
	return e.Kind == KindTransient
}

// TimeoutError is returned by Poller.WaitForOutput when the deadline passes
// without a value.
type TimeoutError struct {
	Args []string
	// LastError is the message of the last failed attempt, if any.
	LastError string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	last := e.LastError
	if last == "" {
		last = "None"
	}
	return fmt.Sprintf("timeout waiting for output from kubectl command: %v (last_error=%s)", e.Args, last)
}

// Unwrap returns ErrPollTimeout.
func (e *TimeoutError) Unwrap() error {
	return ErrPollTimeout
}

func isTransient(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Transient()
}

// operationName returns the kubectl verb of an argument list.
func operationName(args []string) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return "command"
}
