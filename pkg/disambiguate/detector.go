package disambiguate

import (
	"sort"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// AmbiguityCandidate is one pair of concepts sharing a canonical label
// whose context divergence crosses the configured threshold.
type AmbiguityCandidate struct {
	Label            string
	ConceptIDs       [2]string
	ParentDivergence float64
	ContextOverlap   float64
	Divergence       float64
}

// AmbiguityDetector groups concepts by canonical label and flags pairs
// whose lineages and contexts diverge enough to warrant a separability
// check.
type AmbiguityDetector struct {
	policy config.DisambiguationPolicy
}

// NewAmbiguityDetector binds a detector to policy.
func NewAmbiguityDetector(policy config.DisambiguationPolicy) *AmbiguityDetector {
	return &AmbiguityDetector{policy: policy}
}

// DetectCollisions returns one AmbiguityCandidate per pair of concepts
// sharing a canonical label (case-insensitive) whose computed
// divergence meets or exceeds policy.DivergenceThreshold. Concepts are
// grouped and paired in a deterministic, id-sorted order.
func (d *AmbiguityDetector) DetectCollisions(concepts []model.Concept, contextsByID map[string][]ContextWindow) []AmbiguityCandidate {
	groups := map[string][]model.Concept{}
	for _, c := range concepts {
		key := strings.ToLower(c.CanonicalLabel)
		groups[key] = append(groups[key], c)
	}

	var labels []string
	for label := range groups {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var candidates []AmbiguityCandidate
	for _, label := range labels {
		group := groups[label]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				ctxA, ctxB := contextsByID[a.ID], contextsByID[b.ID]

				parentDivergence := 0.0
				if !sameParentSet(a.Parents, b.Parents) {
					parentDivergence = 1.0
				}

				divergence := ComputeContextDivergence(ctxA, ctxB)
				overlap := ContextOverlap(ctxA, ctxB)

				if divergence >= d.policy.DivergenceThreshold {
					candidates = append(candidates, AmbiguityCandidate{
						Label:            label,
						ConceptIDs:       [2]string{a.ID, b.ID},
						ParentDivergence: parentDivergence,
						ContextOverlap:   overlap,
						Divergence:       divergence,
					})
				}
			}
		}
	}
	return candidates
}

func sameParentSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}
