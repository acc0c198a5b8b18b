package disambiguate

import (
	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/consolidate"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// SplitDecision is the outcome of splitting one source concept into
// its separable senses.
type SplitDecision struct {
	NewConcepts []model.Concept
	SplitOp     model.SplitOp
}

// ConceptSplitter builds the new concepts and SplitOp for a confirmed
// separability verdict.
type ConceptSplitter struct {
	policy config.DisambiguationPolicy
}

// NewConceptSplitter binds a splitter to policy.
func NewConceptSplitter(policy config.DisambiguationPolicy) *ConceptSplitter {
	return &ConceptSplitter{policy: policy}
}

// Split builds one new concept per sense, each with id
// "<source>::split::<slug>", inheriting parents from parentMapping (or
// the sense's own parent hints when the source has no mapped parents
// for that sense) and retaining the source's support and aliases. The
// returned SplitOp records the source id and the new ids.
func (s *ConceptSplitter) Split(source model.Concept, senses []SenseDefinition, parentMapping map[string][]string, evidenceMapping map[string][]int, confidence float64) SplitDecision {
	newConcepts := make([]model.Concept, 0, len(senses))
	newIDs := make([]string, 0, len(senses))

	for _, sense := range senses {
		slug := consolidate.Slug(sense.Label)
		newID := source.ID + "::split::" + slug

		parents := parentMapping[sense.Label]
		if len(parents) == 0 {
			parents = sense.ParentHints
		}

		rationale := source.Rationale
		rationale.PassedGates = copyGates(source.Rationale.PassedGates)
		rationale.SetGate("disambiguation", true)
		rationale.AddReason("split from " + source.ID + " as sense " + sense.Label + ": " + sense.Gloss)

		newConcept := model.Concept{
			ID:             newID,
			Level:          source.Level,
			CanonicalLabel: sense.Label,
			Parents:        parents,
			Aliases:        append([]string{sense.Label}, source.Aliases...),
			Support:        source.Support,
			Rationale:      rationale,
		}
		newConcepts = append(newConcepts, newConcept)
		newIDs = append(newIDs, newID)
	}

	return SplitDecision{
		NewConcepts: newConcepts,
		SplitOp: model.SplitOp{
			SourceID: source.ID,
			NewIDs:   newIDs,
			Reason:   "context divergence exceeded policy threshold",
		},
	}
}

func copyGates(gates map[string]bool) map[string]bool {
	out := make(map[string]bool, len(gates)+1)
	for k, v := range gates {
		out[k] = v
	}
	return out
}
