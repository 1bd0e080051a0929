// Package handler implements the CloudFormation custom-resource handlers
// that read from and patch an EKS cluster through kubectl.
//
// Each invocation writes a fresh kubeconfig for the target cluster, then
// dispatches on the request type:
//
//   - GetHandler polls a jsonpath expression on Create and Update and
//     returns the value under the "Value" data key. Delete is a no-op.
//   - PatchHandler applies ApplyPatchJson on Create and Update and
//     RestorePatchJson on Delete.
//
// Any other request type fails with ErrInvalidRequestType before the
// kubeconfig is written or kubectl runs.
package handler
