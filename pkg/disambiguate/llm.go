package disambiguate

import (
	"context"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/llmprovider"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

const maxSummarizedContexts = 8

// SenseDefinition is one proposed sense from the disambiguate prompt.
type SenseDefinition struct {
	Label           string `json:"label"`
	Gloss           string `json:"gloss"`
	ParentHints     []string `json:"parent_hints"`
	EvidenceIndices []int  `json:"evidence_indices"`
}

// SeparabilityResult is the disambiguate prompt's parsed verdict.
type SeparabilityResult struct {
	Separable  bool              `json:"separable"`
	Confidence float64           `json:"confidence"`
	Senses     []SenseDefinition `json:"senses"`
}

// LLMDisambiguator calls the disambiguate prompt to decide whether a
// colliding label covers separable senses.
type LLMDisambiguator struct {
	policy config.DisambiguationPolicy
	runner *llmprovider.Runner
}

// NewLLMDisambiguator binds a disambiguator to policy and runner.
func NewLLMDisambiguator(policy config.DisambiguationPolicy, runner *llmprovider.Runner) *LLMDisambiguator {
	return &LLMDisambiguator{policy: policy, runner: runner}
}

// CheckSeparability calls the disambiguate prompt for label across the
// colliding concepts' summarized contexts and returns the parsed
// separability verdict.
func (d *LLMDisambiguator) CheckSeparability(ctx context.Context, label string, level model.Level, concepts []model.Concept, contextsByID map[string][]ContextWindow) (SeparabilityResult, error) {
	var combined []ContextWindow
	for _, c := range concepts {
		combined = append(combined, contextsByID[c.ID]...)
	}

	vars := map[string]any{
		"label":    label,
		"level":    int(level),
		"contexts": SummarizeContextsForLLM(combined, maxSummarizedContexts),
	}

	var result SeparabilityResult
	itemID := label
	if len(concepts) > 0 {
		itemID = concepts[0].ID
	}
	if err := d.runner.Call(ctx, "taxonomy.disambiguate", itemID, vars, &result); err != nil {
		return SeparabilityResult{}, err
	}
	return result, nil
}
