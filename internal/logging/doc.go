// Package logging provides structured logging utilities for the kubectl
// custom-resource handlers.
//
// All handler and executor logs go through log/slog. In Lambda the output is
// JSON on stderr so CloudWatch can index the attributes.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "kubectl.patch")
//	logger.Info("patching resource",
//	    logging.Namespace("kube-system"),
//	    logging.ResourceName("deployment/coredns"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("writing kubeconfig",
//	    logging.Host(endpoint),
//	    logging.RoleHash(roleARN))
//
// # Security Considerations
//
//   - Cluster endpoints have IP addresses redacted
//   - Role ARNs are hashed so invocations can be correlated without exposing account IDs
//   - Patch payloads and certificate data are logged by length only
package logging
