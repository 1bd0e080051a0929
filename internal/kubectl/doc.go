// Package kubectl runs the kubectl binary against a generated kubeconfig.
//
// kubectl exposes no structured way to tell a retryable failure from a fatal
// one, so every failed run is reduced to its merged stdout/stderr and passed
// through a Classifier exactly once. The default classifier treats output
// containing "i/o timeout" as transient; anything else is terminal.
//
// Two call patterns are supported:
//
//   - Executor.Execute runs one command with up to MaxAttempts attempts,
//     retrying transient failures immediately.
//   - Poller.WaitForOutput repeats an Execute until it yields a non-empty
//     value or the timeout elapses. "NotFound" failures are expected while
//     the target resource is being created and never end the poll.
package kubectl
