package handler

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/eks-kubectl-handler/internal/kubeconfig"
	"github.com/giantswarm/eks-kubectl-handler/internal/logging"
)

// Resource property keys.
const (
	PropClusterName                     = "ClusterName"
	PropClusterEndpoint                 = "ClusterEndpoint"
	PropClusterCertificateAuthorityData = "ClusterCertificateAuthorityData"
	PropRoleArn                         = "RoleArn"

	PropObjectType      = "ObjectType"
	PropObjectName      = "ObjectName"
	PropObjectNamespace = "ObjectNamespace"
	PropJsonPath        = "JsonPath"
	PropTimeoutSeconds  = "TimeoutSeconds"

	PropResourceName      = "ResourceName"
	PropResourceNamespace = "ResourceNamespace"
	PropApplyPatchJson    = "ApplyPatchJson"
	PropRestorePatchJson  = "RestorePatchJson"
	PropPatchType         = "PatchType"
)

// Properties wraps the ResourceProperties of a custom-resource event.
type Properties map[string]interface{}

// String returns a required string property.
func (p Properties) String(key string) (string, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return "", &PropertyError{Key: key, Err: ErrMissingProperty}
	}
	s, ok := raw.(string)
	if !ok {
		return "", &PropertyError{Key: key, Err: ErrInvalidProperty, Reason: fmt.Sprintf("expected string, got %T", raw)}
	}
	return s, nil
}

// Seconds returns a required duration given in whole seconds, either as a
// string or as a JSON number.
func (p Properties) Seconds(key string) (time.Duration, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return 0, &PropertyError{Key: key, Err: ErrMissingProperty}
	}

	var seconds int64
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, &PropertyError{Key: key, Err: ErrInvalidProperty, Reason: fmt.Sprintf("%q is not an integer", v)}
		}
		seconds = n
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &PropertyError{Key: key, Err: ErrInvalidProperty, Reason: "not a finite number"}
		}
		seconds = int64(v)
	case int:
		seconds = int64(v)
	case int64:
		seconds = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, &PropertyError{Key: key, Err: ErrInvalidProperty, Reason: fmt.Sprintf("%q is not an integer", v)}
		}
		seconds = n
	default:
		return 0, &PropertyError{Key: key, Err: ErrInvalidProperty, Reason: fmt.Sprintf("expected number or string, got %T", raw)}
	}
	return time.Duration(seconds) * time.Second, nil
}

// Masked returns a copy of p that is safe to log: patch documents and CA
// data are reduced to their length, the role ARN is hashed and IP
// endpoints are redacted.
func (p Properties) Masked() map[string]interface{} {
	masked := make(map[string]interface{}, len(p))
	for k, v := range p {
		s, isString := v.(string)
		switch {
		case !isString:
			masked[k] = v
		case k == PropApplyPatchJson || k == PropRestorePatchJson || k == PropClusterCertificateAuthorityData:
			masked[k] = logging.SanitizePayload(s)
		case k == PropRoleArn:
			masked[k] = logging.AnonymizeARN(s)
		case k == PropClusterEndpoint:
			masked[k] = logging.SanitizeHost(s)
		default:
			masked[k] = s
		}
	}
	return masked
}

// ClusterProperties locate the cluster and the role kubectl authenticates as.
type ClusterProperties struct {
	Name                     string
	Endpoint                 string
	CertificateAuthorityData string
	RoleARN                  string
}

// KubeconfigParams converts c for kubeconfig.Build.
func (c ClusterProperties) KubeconfigParams() kubeconfig.Params {
	return kubeconfig.Params{
		ClusterName:              c.Name,
		Endpoint:                 c.Endpoint,
		CertificateAuthorityData: c.CertificateAuthorityData,
		RoleARN:                  c.RoleARN,
	}
}

// GetProperties are the inputs of the get handler.
type GetProperties struct {
	Cluster         ClusterProperties
	ObjectType      string
	ObjectName      string
	ObjectNamespace string
	JSONPath        string
	Timeout         time.Duration
}

// Args returns the kubectl arguments reading JSONPath from the object.
func (g GetProperties) Args() []string {
	return []string{
		"get", "-n", g.ObjectNamespace, g.ObjectType, g.ObjectName,
		fmt.Sprintf("-o=jsonpath='{%s}'", g.JSONPath),
	}
}

// PatchProperties are the inputs of the patch handler.
type PatchProperties struct {
	Cluster           ClusterProperties
	ResourceName      string
	ResourceNamespace string
	ApplyPatchJSON    string
	RestorePatchJSON  string
	PatchType         string
}

// Args returns the kubectl arguments applying payload to the resource.
func (pp PatchProperties) Args(payload string) []string {
	return []string{
		"patch", pp.ResourceName,
		"-n", pp.ResourceNamespace,
		"-p", payload,
		"--type", pp.PatchType,
	}
}

// propertyReader collects the first extraction error so callers can read
// several properties in a row and check once.
type propertyReader struct {
	props Properties
	err   error
}

func (r *propertyReader) string(key string) string {
	if r.err != nil {
		return ""
	}
	s, err := r.props.String(key)
	r.err = err
	return s
}

func (r *propertyReader) seconds(key string) time.Duration {
	if r.err != nil {
		return 0
	}
	d, err := r.props.Seconds(key)
	r.err = err
	return d
}

func (r *propertyReader) cluster() ClusterProperties {
	return ClusterProperties{
		Name:                     r.string(PropClusterName),
		Endpoint:                 r.string(PropClusterEndpoint),
		CertificateAuthorityData: r.string(PropClusterCertificateAuthorityData),
		RoleARN:                  r.string(PropRoleArn),
	}
}

// ParseGetProperties extracts GetProperties. Every property is required.
func ParseGetProperties(props Properties) (GetProperties, error) {
	r := &propertyReader{props: props}
	g := GetProperties{
		Cluster:         r.cluster(),
		ObjectType:      r.string(PropObjectType),
		ObjectName:      r.string(PropObjectName),
		ObjectNamespace: r.string(PropObjectNamespace),
		JSONPath:        r.string(PropJsonPath),
		Timeout:         r.seconds(PropTimeoutSeconds),
	}
	if r.err != nil {
		return GetProperties{}, r.err
	}
	return g, nil
}

// ParsePatchProperties extracts PatchProperties. Every property is required.
func ParsePatchProperties(props Properties) (PatchProperties, error) {
	r := &propertyReader{props: props}
	pp := PatchProperties{
		Cluster:           r.cluster(),
		ResourceName:      r.string(PropResourceName),
		ResourceNamespace: r.string(PropResourceNamespace),
		ApplyPatchJSON:    r.string(PropApplyPatchJson),
		RestorePatchJSON:  r.string(PropRestorePatchJson),
		PatchType:         r.string(PropPatchType),
	}
	if r.err != nil {
		return PatchProperties{}, r.err
	}
	return pp, nil
}
