// Package verify implements S3, token verification: a deterministic
// TokenRuleEngine stacked with an LLMTokenVerifier, gated by
// prefer_rule_over_llm.
package verify

import (
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// RuleEngine evaluates a candidate's normalized label against the
// single_token policy's deterministic rules, in a fixed evaluation
// order: allowlist, token count, punctuation, venue names, structure.
type RuleEngine struct {
	policy    config.SingleTokenVerificationPolicy
	allowlist map[string]struct{}
	venues    map[string]struct{}
}

// NewRuleEngine builds a RuleEngine bound to policy.
func NewRuleEngine(policy config.SingleTokenVerificationPolicy) *RuleEngine {
	allow := make(map[string]struct{}, len(policy.Allowlist))
	for _, v := range policy.Allowlist {
		allow[v] = struct{}{}
	}
	venues := make(map[string]struct{}, len(policy.VenueNames))
	for _, v := range policy.VenueNames {
		venues[v] = struct{}{}
	}
	return &RuleEngine{policy: policy, allowlist: allow, venues: venues}
}

// Evaluate runs the rule stack against candidate at level.
func (e *RuleEngine) Evaluate(candidate model.Candidate) model.RuleEvaluation {
	eval := model.RuleEvaluation{Passed: true}

	if _, ok := e.allowlist[candidate.Normalized]; ok {
		eval.AllowlistHit = true
		eval.Reasons = append(eval.Reasons, "label matched allowlist")
		return eval
	}

	tokens := strings.Fields(candidate.Normalized)

	maxTokens, hasLimit := e.policy.MaxTokensPerLevel[int(candidate.Level)]
	if hasLimit && len(tokens) > maxTokens {
		eval.Passed = false
		eval.Reasons = append(eval.Reasons, "exceeds max tokens for level")
	}

	if forbidden, ch := e.forbiddenPunctuation(candidate.Normalized); forbidden {
		eval.Passed = false
		eval.Reasons = append(eval.Reasons, "forbidden punctuation: "+ch)
		if suggestion := suggestWithoutHyphen(candidate.Normalized, ch); suggestion != "" {
			eval.Suggestions = append(eval.Suggestions, suggestion)
		}
	}

	if e.isVenue(candidate.Normalized) && e.policy.VenueNamesForbidden {
		eval.Passed = false
		eval.Reasons = append(eval.Reasons, "label is a venue name")
	}

	if structuralIssue := structuralCheck(candidate.Normalized, tokens); structuralIssue != "" {
		eval.Passed = false
		eval.Reasons = append(eval.Reasons, structuralIssue)
	}

	if eval.Passed {
		eval.Reasons = append(eval.Reasons, "passed rule checks")
	}
	return eval
}

// forbiddenPunctuation reports whether normalized contains a character
// from the forbidden set, exempting '-' when hyphenated compounds are
// allowed.
func (e *RuleEngine) forbiddenPunctuation(normalized string) (bool, string) {
	for _, forbidden := range e.policy.ForbiddenPunctuation {
		if forbidden == "" {
			continue
		}
		if forbidden == "-" && e.policy.HyphenatedCompoundsAllow {
			continue
		}
		if strings.Contains(normalized, forbidden) {
			return true, forbidden
		}
	}
	return false, ""
}

func (e *RuleEngine) isVenue(normalized string) bool {
	_, ok := e.venues[normalized]
	return ok
}

// suggestWithoutHyphen proposes a hyphen-free alternative when the
// forbidden character is '-', to be added to the candidate's aliases.
func suggestWithoutHyphen(normalized, forbidden string) string {
	if forbidden != "-" {
		return ""
	}
	return strings.Join(strings.Split(normalized, "-"), " ")
}

// structuralCheck catches empty labels and immediately repeated tokens.
func structuralCheck(normalized string, tokens []string) string {
	if normalized == "" {
		return "empty normalized label"
	}
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == tokens[i-1] {
			return "duplicate adjacent token"
		}
	}
	return ""
}
