package validation

import (
	"context"
	"strconv"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

// Aggregator combines rule, web, and LLM validation signals into a
// single weighted strength and a final pass/fail decision.
type Aggregator struct {
	settings config.ValidationAggregationSettings
	rules    *RuleValidator
	web      *WebValidator
	llm      *LLMValidator
}

// NewAggregator binds an Aggregator to the three validators and the
// weights that combine them.
func NewAggregator(settings config.ValidationAggregationSettings, rules *RuleValidator, web *WebValidator, llm *LLMValidator) *Aggregator {
	return &Aggregator{settings: settings, rules: rules, web: web, llm: llm}
}

// Run validates concept against all three signal sources, writes a
// ValidationMetadata and ValidationPassed onto concept, sets the
// "validation" rationale gate, and returns the updated concept.
//
// The composite strength is S = rule_weight*r + web_weight*w +
// llm_weight*l, where r is the 1/0 pass indicator of the rule
// validator, w is the mean evidence authority from the web validator,
// and l is the entailment confidence when the LLM validator reports a
// positive one, else its 1/0 pass indicator. When hard_rule_failure_blocks is set and the rule
// validator hard-fails, the concept fails regardless of S. Otherwise
// the concept passes iff S is at or above threshold; an exact tie at
// threshold is resolved by tie_break_conservative, which fails unless
// the web strength also clears tie_break_min_strength.
func (a *Aggregator) Run(ctx context.Context, concept model.Concept, threshold float64, obs *observability.ObservabilityContext) model.Concept {
	ruleFinding := a.rules.Validate(concept)
	webFinding, snippets := a.web.Validate(concept)
	llmFinding, llmConfidence := a.llm.Validate(ctx, concept, snippets)

	r := indicator(ruleFinding.Passed)
	w := Strength(snippets)
	l := indicator(llmFinding.Passed)
	if llmFinding.Mode == model.ValidationModeLLM && llmConfidence > 0 {
		l = llmConfidence
	}

	strength := a.settings.RuleWeight*r + a.settings.WebWeight*w + a.settings.LLMWeight*l

	hardFailed := a.settings.HardRuleFailureBlocks && !ruleFinding.Passed
	passed := !hardFailed && strength >= threshold
	tieBroken := false

	if !hardFailed && strength == threshold && a.settings.TieBreakConservative {
		minStrength := 0.0
		if a.settings.TieBreakMinStrength != nil {
			minStrength = *a.settings.TieBreakMinStrength
		}
		passed = w >= minStrength
		tieBroken = true
	}

	meta := &model.ValidationMetadata{
		Strength:    strength,
		Threshold:   threshold,
		HardFailed:  hardFailed,
		Findings:    []model.ValidationFinding{ruleFinding, webFinding, llmFinding},
		RuleSummary: ruleFinding.Detail,
		TieBroken:   tieBroken,
	}

	concept.ValidationMetadata = meta
	concept.ValidationPassed = &passed
	concept.Rationale.SetGate("validation", passed)
	if !passed {
		concept.Rationale.AddReason("validation strength " + strconv.FormatFloat(strength, 'f', 4, 64) + " below threshold " + strconv.FormatFloat(threshold, 'f', 4, 64))
	}

	obs.IncrementLabel("validation_outcomes", outcomeLabel(passed), 1)
	return concept
}

func indicator(passed bool) float64 {
	if passed {
		return 1
	}
	return 0
}

func outcomeLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
