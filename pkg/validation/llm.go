package validation

import (
	"context"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/llmprovider"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// entailmentResponse is the taxonomy.validate_entailment response shape.
type entailmentResponse struct {
	Validated  bool    `json:"validated"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// LLMValidator calls the entailment prompt with evidence snippets
// truncated to max_evidence_tokens.
type LLMValidator struct {
	settings config.LLMValidationSettings
	runner   *llmprovider.Runner
}

// NewLLMValidator binds an LLMValidator to settings and runner. runner
// may be nil when entailment_enabled is false.
func NewLLMValidator(settings config.LLMValidationSettings, runner *llmprovider.Runner) *LLMValidator {
	return &LLMValidator{settings: settings, runner: runner}
}

// Validate calls the entailment prompt for concept against snippets,
// returning the finding and the confidence reported for aggregation.
func (v *LLMValidator) Validate(ctx context.Context, concept model.Concept, snippets []Snippet) (model.ValidationFinding, float64) {
	if !v.settings.EntailmentEnabled || v.runner == nil {
		return model.ValidationFinding{
			ConceptID: concept.ID,
			Mode:      model.ValidationModeLLM,
			Passed:    true,
			Detail:    "entailment validation disabled",
		}, 0
	}

	evidence := truncateEvidence(snippets, v.settings.MaxEvidenceTokens)
	vars := map[string]any{
		"label":    concept.CanonicalLabel,
		"evidence": evidence,
	}

	var result entailmentResponse
	if err := v.runner.Call(ctx, "taxonomy.validate_entailment", concept.ID, vars, &result); err != nil {
		return model.ValidationFinding{
			ConceptID: concept.ID,
			Mode:      model.ValidationModeLLM,
			Passed:    false,
			Detail:    "entailment call failed: " + err.Error(),
		}, 0
	}

	passed := result.Validated && result.Confidence >= v.settings.ConfidenceThreshold
	return model.ValidationFinding{
		ConceptID: concept.ID,
		Mode:      model.ValidationModeLLM,
		Passed:    passed,
		Detail:    result.Reason,
	}, result.Confidence
}

// truncateEvidence joins snippet text up to approximately maxTokens
// words, a whitespace-token approximation consistent with the rest of
// the pipeline's token-counting rules.
func truncateEvidence(snippets []Snippet, maxTokens int) string {
	var b strings.Builder
	words := 0
	for _, s := range snippets {
		for _, word := range strings.Fields(s.Text) {
			if words >= maxTokens {
				return b.String()
			}
			if words > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(word)
			words++
		}
	}
	return b.String()
}
