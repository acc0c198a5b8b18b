package disambiguate

import (
	"context"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

// ProcessOutcome is the result of running disambiguation over one
// batch of concepts: the (possibly split) concept set and every
// SplitOp applied.
type ProcessOutcome struct {
	Concepts []model.Concept
	SplitOps []model.SplitOp
}

// DisambiguationProcessor detects label collisions, consults the LLM
// for separability, and applies confirmed splits.
type DisambiguationProcessor struct {
	policy        config.DisambiguationPolicy
	detector      *AmbiguityDetector
	disambiguator *LLMDisambiguator
	splitter      *ConceptSplitter
}

// NewDisambiguationProcessor wires a processor from policy and a bound
// LLMDisambiguator.
func NewDisambiguationProcessor(policy config.DisambiguationPolicy, disambiguator *LLMDisambiguator) *DisambiguationProcessor {
	return &DisambiguationProcessor{
		policy:        policy,
		detector:      NewAmbiguityDetector(policy),
		disambiguator: disambiguator,
		splitter:      NewConceptSplitter(policy),
	}
}

// Process builds context windows from recordsByID (keyed by concept
// id), detects colliding concept pairs, and for each one whose
// separability verdict clears confidence_threshold with at least
// min_separable_senses proposed senses, splits the lexicographically
// first concept in the pair into its senses. Concepts not involved in
// a confirmed split are returned unchanged.
func (p *DisambiguationProcessor) Process(ctx context.Context, concepts []model.Concept, recordsByID map[string][]model.SourceRecord, obs *observability.ObservabilityContext) ProcessOutcome {
	byID := make(map[string]model.Concept, len(concepts))
	contextsByID := make(map[string][]ContextWindow, len(concepts))
	for _, c := range concepts {
		byID[c.ID] = c
		contextsByID[c.ID] = ExtractContextWindows(c, recordsByID[c.ID], defaultWindowSize)
	}

	candidates := p.detector.DetectCollisions(concepts, contextsByID)
	obs.IncrementLabel("disambiguation_candidates", "detected", len(candidates))

	split := map[string]bool{}
	var splitOps []model.SplitOp
	var produced []model.Concept

	for _, candidate := range candidates {
		sourceID := candidate.ConceptIDs[0]
		if split[sourceID] {
			continue
		}
		pair := []model.Concept{byID[candidate.ConceptIDs[0]], byID[candidate.ConceptIDs[1]]}

		result, err := p.disambiguator.CheckSeparability(ctx, candidate.Label, pair[0].Level, pair, contextsByID)
		if err != nil {
			obs.IncrementLabel("disambiguation_errors", candidate.Label, 1)
			continue
		}
		if !result.Separable || result.Confidence < p.policy.ConfidenceThreshold || len(result.Senses) < p.policy.MinSeparableSenses {
			continue
		}

		parentMapping := make(map[string][]string, len(result.Senses))
		evidenceMapping := make(map[string][]int, len(result.Senses))
		for _, sense := range result.Senses {
			parentMapping[sense.Label] = sense.ParentHints
			evidenceMapping[sense.Label] = sense.EvidenceIndices
		}

		source := byID[sourceID]
		decision := p.splitter.Split(source, result.Senses, parentMapping, evidenceMapping, result.Confidence)
		split[sourceID] = true
		splitOps = append(splitOps, decision.SplitOp)
		produced = append(produced, decision.NewConcepts...)
		obs.IncrementLabel("disambiguation_splits", candidate.Label, 1)
	}

	outcome := make([]model.Concept, 0, len(concepts))
	for _, c := range concepts {
		if split[c.ID] {
			continue
		}
		outcome = append(outcome, c)
	}
	outcome = append(outcome, produced...)

	return ProcessOutcome{Concepts: outcome, SplitOps: splitOps}
}
