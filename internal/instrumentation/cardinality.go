package instrumentation

import "strings"

// ClusterType is a low-cardinality classification of a cluster name.
type ClusterType string

// Cluster type classifications for metrics cardinality control.
const (
	ClusterTypeProduction  ClusterType = "production"
	ClusterTypeStaging     ClusterType = "staging"
	ClusterTypeDevelopment ClusterType = "development"
	ClusterTypeCICD        ClusterType = "cicd"
	ClusterTypeOperations  ClusterType = "operations"
	ClusterTypeUnknown     ClusterType = "unknown"
	ClusterTypeOther       ClusterType = "other"
)

// clusterPattern matches a lower-cased cluster name by prefix, infix or suffix.
type clusterPattern struct {
	prefixes []string
	contains []string
	suffixes []string
	typ      ClusterType
}

// clusterPatterns are evaluated in order; CI/CD and operations come first
// because their names often contain "prod" or "dev" as well.
var clusterPatterns = []clusterPattern{
	{contains: []string{"cicd"}, typ: ClusterTypeCICD},
	{
		prefixes: []string{"ops-", "ops_"},
		contains: []string{"operations", "-ops-"},
		suffixes: []string{"-ops"},
		typ:      ClusterTypeOperations,
	},
	{
		prefixes: []string{"prod-", "prod_", "prd-"},
		contains: []string{"production", "-prod-", "-prd-"},
		suffixes: []string{"-prod", "-prd"},
		typ:      ClusterTypeProduction,
	},
	{
		prefixes: []string{"stg-", "uat-"},
		contains: []string{"staging", "-stg-", "-uat-"},
		suffixes: []string{"-stg", "-uat"},
		typ:      ClusterTypeStaging,
	},
	{
		prefixes: []string{"dev-", "dev_", "demo", "test-", "test_", "sandbox"},
		contains: []string{"development", "-dev-", "-demo-", "-test-"},
		suffixes: []string{"-dev", "-test"},
		typ:      ClusterTypeDevelopment,
	},
}

func (p clusterPattern) matches(name string) bool {
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, infix := range p.contains {
		if strings.Contains(name, infix) {
			return true
		}
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ClassifyClusterName classifies an EKS cluster name into a type for metrics
// and span attributes, so dashboards can group clusters without one series per
// cluster.
//
//	ClassifyClusterName("")                 // "unknown"
//	ClassifyClusterName("prod-eu-west-1")   // "production"
//	ClassifyClusterName("payments-stg")     // "staging"
//	ClassifyClusterName("cicd-runners-prod") // "cicd"
//	ClassifyClusterName("analytics")        // "other"
func ClassifyClusterName(name string) string {
	if name == "" {
		return string(ClusterTypeUnknown)
	}

	lower := strings.ToLower(name)
	for _, p := range clusterPatterns {
		if p.matches(lower) {
			return string(p.typ)
		}
	}
	return string(ClusterTypeOther)
}
