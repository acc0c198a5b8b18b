package verify

import (
	"context"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/llmprovider"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

// Processor stacks the RuleEngine and an LLMTokenVerifier, applying
// prefer_rule_over_llm priority.
type Processor struct {
	rules        *RuleEngine
	runner       *llmprovider.Runner
	preferRule   bool
	forbiddenHit func(model.Candidate) bool
}

// NewProcessor builds a Processor bound to policy and runner. runner
// may be nil when LLM verification is not configured for this level,
// in which case rule evaluation is authoritative.
func NewProcessor(policy config.SingleTokenVerificationPolicy, runner *llmprovider.Runner) *Processor {
	engine := NewRuleEngine(policy)
	return &Processor{
		rules:      engine,
		runner:     runner,
		preferRule: policy.PreferRuleOverLLM,
		forbiddenHit: func(c model.Candidate) bool {
			hit, _ := engine.forbiddenPunctuation(c.Normalized)
			return hit
		},
	}
}

// Verify evaluates candidate through the rule engine and, when
// applicable, the LLM verifier, returning the combined decision.
func (p *Processor) Verify(ctx context.Context, candidate model.Candidate, obs *observability.ObservabilityContext) model.TokenVerificationDecision {
	obs.Increment("checked", 1)

	ruleEval := p.rules.Evaluate(candidate)
	if ruleEval.AllowlistHit {
		obs.Increment("passed_rule", 1)
		return p.decide(candidate, ruleEval, nil, true, "allowlist bypass")
	}

	if ruleEval.Passed {
		obs.Increment("passed_rule", 1)
		if p.preferRule || p.runner == nil {
			return p.decide(candidate, ruleEval, nil, true, "passed rule checks, LLM not called")
		}
	} else {
		obs.Increment("failed_rule", 1)
		if p.preferRule || p.runner == nil {
			return p.decide(candidate, ruleEval, nil, false, "failed rule checks")
		}
	}

	if p.runner == nil {
		return p.decide(candidate, ruleEval, nil, ruleEval.Passed, "rule-only verification")
	}

	obs.Increment("llm_called", 1)
	var result model.LLMTokenResult
	vars := map[string]any{"level": int(candidate.Level), "label": candidate.Normalized}
	if err := p.runner.Call(ctx, "taxonomy.verify_single_token", candidate.Normalized, vars, &result); err != nil {
		return p.decide(candidate, ruleEval, nil, ruleEval.Passed, "llm call failed, falling back to rule result")
	}

	if result.Pass {
		obs.Increment("passed_llm", 1)
	}

	// The LLM may override a rule failure only for a multi-token
	// rationale, never a hard forbidden-punctuation failure.
	if result.Pass && !ruleEval.Passed {
		if p.forbiddenHit(candidate) {
			return p.decide(candidate, ruleEval, &result, false, "llm override rejected: forbidden punctuation is hard")
		}
		if len(ruleEval.Reasons) == 1 && ruleEval.Reasons[0] == "exceeds max tokens for level" {
			return p.decide(candidate, ruleEval, &result, true, "bypass:multi_token")
		}
	}

	passed := ruleEval.Passed && result.Pass
	return p.decide(candidate, ruleEval, &result, passed, "combined rule/llm verdict")
}

func (p *Processor) decide(candidate model.Candidate, ruleEval model.RuleEvaluation, llmResult *model.LLMTokenResult, passed bool, reason string) model.TokenVerificationDecision {
	rationale := model.NewRationale()
	rationale.SetGate("token_verification", passed)
	rationale.AddReason(reason)
	for _, r := range ruleEval.Reasons {
		rationale.AddReason(r)
	}

	if len(ruleEval.Suggestions) > 0 {
		candidate.Aliases = mergeUnique(candidate.Aliases, ruleEval.Suggestions)
	}

	return model.TokenVerificationDecision{
		Candidate:      candidate,
		Passed:         passed,
		RuleEvaluation: ruleEval,
		LLMResult:      llmResult,
		Rationale:      rationale,
	}
}

func mergeUnique(existing, additions []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	out := append([]string(nil), existing...)
	for _, v := range additions {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
