package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func testTokenPolicy() config.SingleTokenVerificationPolicy {
	return config.SingleTokenVerificationPolicy{
		MaxTokensPerLevel:        map[int]int{0: 4, 1: 3, 2: 3, 3: 2},
		ForbiddenPunctuation:     []string{"-", "/", "_"},
		Allowlist:                []string{"artificial intelligence"},
		VenueNames:               []string{"neurips"},
		VenueNamesForbidden:      true,
		HyphenatedCompoundsAllow: false,
		PreferRuleOverLLM:        true,
	}
}

// TestAllowlistBypass checks that an allowlisted label passes without
// the LLM being consulted.
func TestAllowlistBypass(t *testing.T) {
	proc := NewProcessor(testTokenPolicy(), nil)
	obs := observability.New()
	defer obs.Phase("phase1_level1").Close()

	candidate := model.Candidate{Level: model.Level1, Normalized: "artificial intelligence"}
	decision := proc.Verify(context.Background(), candidate, obs)

	assert.True(t, decision.RuleEvaluation.AllowlistHit)
	assert.True(t, decision.Passed)
	assert.Nil(t, decision.LLMResult)
}

// TestForbiddenPunctuationFailsFast checks that a hyphenated label
// fails when hyphenated compounds are disallowed, and that the
// un-hyphenated form is suggested as an alias.
func TestForbiddenPunctuationFailsFast(t *testing.T) {
	proc := NewProcessor(testTokenPolicy(), nil)
	obs := observability.New()
	defer obs.Phase("phase1_level2").Close()

	candidate := model.Candidate{Level: model.Level2, Normalized: "machine-learning"}
	decision := proc.Verify(context.Background(), candidate, obs)

	assert.False(t, decision.Passed)
	require.NotEmpty(t, decision.Candidate.Aliases)
	assert.Contains(t, decision.Candidate.Aliases, "machine learning")
}

func TestHyphenatedCompoundAllowedPasses(t *testing.T) {
	policy := testTokenPolicy()
	policy.HyphenatedCompoundsAllow = true
	proc := NewProcessor(policy, nil)
	obs := observability.New()
	defer obs.Phase("phase1_level2").Close()

	candidate := model.Candidate{Level: model.Level2, Normalized: "machine-learning"}
	decision := proc.Verify(context.Background(), candidate, obs)

	assert.True(t, decision.Passed)
}

func TestTokenCountRuleFails(t *testing.T) {
	proc := NewProcessor(testTokenPolicy(), nil)
	obs := observability.New()
	defer obs.Phase("phase1_level3").Close()

	candidate := model.Candidate{Level: model.Level3, Normalized: "a b c d e"}
	decision := proc.Verify(context.Background(), candidate, obs)

	assert.False(t, decision.Passed)
	assert.Contains(t, decision.RuleEvaluation.Reasons, "exceeds max tokens for level")
}

func TestVenueDetectionForbidden(t *testing.T) {
	proc := NewProcessor(testTokenPolicy(), nil)
	obs := observability.New()
	defer obs.Phase("phase1_level2").Close()

	candidate := model.Candidate{Level: model.Level2, Normalized: "neurips"}
	decision := proc.Verify(context.Background(), candidate, obs)

	assert.False(t, decision.Passed)
}
