package kubeconfig

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// Defaults for Options.
const (
	DefaultAuthenticatorCommand = "/opt/kubectl/aws-iam-authenticator"
	// LayerAuthenticatorCommand is where the standalone authenticator layer
	// installs the plugin.
	LayerAuthenticatorCommand = "/opt/aws-iam-authenticator/aws-iam-authenticator"
	DefaultExecAPIVersion       = "client.authentication.k8s.io/v1alpha1"
	DefaultUserName             = "lambda"
	DefaultContextName          = "default"

	// FileName is the kubeconfig file name inside the output directory.
	FileName = "kubeconfig"

	// FileMode is applied to the kubeconfig after every write.
	FileMode os.FileMode = 0o600
)

// ErrMissingParam is returned by Build when a required parameter is empty.
var ErrMissingParam = errors.New("missing kubeconfig parameter")

// Params identify the target cluster and the role used to reach it.
type Params struct {
	ClusterName string
	Endpoint    string
	// CertificateAuthorityData is the base64 encoded cluster CA bundle.
	CertificateAuthorityData string
	RoleARN                  string
}

// Options tune the generated file. Zero values select the defaults.
type Options struct {
	AuthenticatorCommand string
	ExecAPIVersion       string
	UserName             string
	ContextName          string
}

func (o Options) withDefaults() Options {
	if o.AuthenticatorCommand == "" {
		o.AuthenticatorCommand = DefaultAuthenticatorCommand
	}
	if o.ExecAPIVersion == "" {
		o.ExecAPIVersion = DefaultExecAPIVersion
	}
	if o.UserName == "" {
		o.UserName = DefaultUserName
	}
	if o.ContextName == "" {
		o.ContextName = DefaultContextName
	}
	return o
}

func (p Params) validate() error {
	var missing []string
	if p.ClusterName == "" {
		missing = append(missing, "cluster name")
	}
	if p.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if p.CertificateAuthorityData == "" {
		missing = append(missing, "certificate authority data")
	}
	if p.RoleARN == "" {
		missing = append(missing, "role ARN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingParam, strings.Join(missing, ", "))
	}
	return nil
}

// Build returns a kubeconfig with a single cluster, an exec-authenticated
// user and a context selecting both.
func Build(params Params, opts Options) (*clientcmdapi.Config, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	ca, err := base64.StdEncoding.DecodeString(strings.TrimSpace(params.CertificateAuthorityData))
	if err != nil {
		return nil, fmt.Errorf("decoding certificate authority data: %w", err)
	}

	cfg := clientcmdapi.NewConfig()
	cfg.Clusters[params.ClusterName] = &clientcmdapi.Cluster{
		Server:                   params.Endpoint,
		CertificateAuthorityData: ca,
	}
	cfg.AuthInfos[opts.UserName] = &clientcmdapi.AuthInfo{
		Exec: &clientcmdapi.ExecConfig{
			APIVersion:      opts.ExecAPIVersion,
			Command:         opts.AuthenticatorCommand,
			Args:            []string{"token", "-i", params.ClusterName, "-r", params.RoleARN},
			InteractiveMode: clientcmdapi.NeverExecInteractiveMode,
		},
	}
	cfg.Contexts[opts.ContextName] = &clientcmdapi.Context{
		Cluster:  params.ClusterName,
		AuthInfo: opts.UserName,
	}
	cfg.CurrentContext = opts.ContextName
	return cfg, nil
}

// Path returns the kubeconfig location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Write serializes cfg to path, replacing any previous content, and
// restricts the file to its owner.
func Write(path string, cfg *clientcmdapi.Config) error {
	if cfg == nil {
		return fmt.Errorf("kubeconfig is nil")
	}
	if err := clientcmd.WriteToFile(*cfg, path); err != nil {
		return fmt.Errorf("writing kubeconfig %s: %w", path, err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Chmod(path, FileMode); err != nil {
			return fmt.Errorf("restricting kubeconfig permissions: %w", err)
		}
	}
	return nil
}

// Load reads a kubeconfig written by Write.
func Load(path string) (*clientcmdapi.Config, error) {
	cfg, err := clientcmd.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig %s: %w", path, err)
	}
	return cfg, nil
}

// Serialize renders cfg in the on-disk YAML form.
func Serialize(cfg *clientcmdapi.Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kubeconfig is nil")
	}
	return clientcmd.Write(*cfg)
}
