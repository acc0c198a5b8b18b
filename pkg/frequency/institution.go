// Package frequency implements S2, frequency filtering: grouping S1
// envelopes by (level, normalized, canonical-parent-set), resolving
// institution identities, collapsing near-duplicate records, and
// gating each group against its level's thresholds.
package frequency

import (
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
)

// InstitutionResolver maps a raw institution string to its canonical
// identity via policy's canonical_mappings and campus_vs_system rule.
type InstitutionResolver struct {
	policy      config.InstitutionPolicy
	placeholder string
}

// NewInstitutionResolver builds a resolver bound to policy, collapsing
// empty institutions to placeholder (unknown_institution_placeholder).
func NewInstitutionResolver(policy config.InstitutionPolicy, placeholder string) *InstitutionResolver {
	return &InstitutionResolver{policy: policy, placeholder: placeholder}
}

// Resolve returns institution's canonical identity.
func (r *InstitutionResolver) Resolve(institution string) string {
	trimmed := strings.TrimSpace(institution)
	if trimmed == "" {
		return r.placeholder
	}
	if canonical, ok := r.policy.CanonicalMappings[trimmed]; ok {
		return canonical
	}
	if canonical, ok := r.policy.CanonicalMappings[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	if r.policy.CampusVsSystem == "collapse_to_system" {
		if system, ok := systemOf(trimmed); ok {
			return system
		}
	}
	return trimmed
}

// systemOf extracts a university-system name from a campus-qualified
// institution string of the form "<System>, <Campus>" or
// "<System> - <Campus>", returning false when no qualifier is present.
func systemOf(institution string) (string, bool) {
	for _, sep := range []string{" - ", ", "} {
		if idx := strings.Index(institution, sep); idx > 0 {
			return strings.TrimSpace(institution[:idx]), true
		}
	}
	return "", false
}
