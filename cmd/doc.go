// Package cmd provides the command-line interface for eks-kubectl-handler.
//
// This package implements a Cobra-based CLI with the following subcommands:
//   - get: Serves the kubectl get custom resource handler in the Lambda runtime
//   - patch: Serves the kubectl patch custom resource handler in the Lambda runtime
//   - invoke: Runs a handler once against an event file, for local testing
//   - version: Displays the application version
//
// Command Structure:
//
//	eks-kubectl-handler get [flags]                          # Lambda entry point of the get handler
//	eks-kubectl-handler patch [flags]                        # Lambda entry point of the patch handler
//	eks-kubectl-handler invoke <get|patch> --event FILE      # Runs one event locally
//	eks-kubectl-handler version                              # Shows version information
//	eks-kubectl-handler help [command]                       # Shows help information
//
// Every handler flag can also be set through an environment variable, which
// is how Lambda functions are usually configured. A flag set on the command
// line wins over the environment:
//
//	KUBECTL_BINARY, KUBECTL_SEARCH_PATH, KUBECTL_MAX_ATTEMPTS,
//	KUBECONFIG_DIR (or TEST_OUTDIR), AUTHENTICATOR_COMMAND, EXEC_API_VERSION,
//	POLL_INTERVAL, POLL_ERROR_POLICY, UNQUOTE_MODE, LOG_LEVEL
//
// OpenTelemetry instrumentation is configured through INSTRUMENTATION_ENABLED,
// METRICS_EXPORTER, TRACING_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT and
// PROMETHEUS_PUSHGATEWAY_URL.
package cmd
