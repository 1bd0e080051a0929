// Package kubeconfig writes the single-cluster kubeconfig the handlers pass
// to kubectl.
//
// The file holds one cluster, one user and one context. The user carries no
// static credentials: kubectl runs an exec credential plugin
// (aws-iam-authenticator by default) which assumes the given IAM role and
// returns a bearer token for the cluster.
//
// Example:
//
//	cfg, err := kubeconfig.Build(kubeconfig.Params{
//		ClusterName:              "prod",
//		Endpoint:                 "https://ABC.gr7.eu-west-1.eks.amazonaws.com",
//		CertificateAuthorityData: caBase64,
//		RoleARN:                  "arn:aws:iam::123456789012:role/creation-role",
//	}, kubeconfig.Options{})
//	if err != nil {
//		return err
//	}
//	if err := kubeconfig.Write("/tmp/kubeconfig", cfg); err != nil {
//		return err
//	}
package kubeconfig
