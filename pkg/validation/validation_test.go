package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func testRuleSettings() config.RuleValidationSettings {
	return config.RuleValidationSettings{
		ForbiddenPatterns:  []string{`(?i)\btbd\b`},
		VenuePatterns:      []string{`(?i)conference|symposium`},
		VenueDetectionHard: true,
	}
}

func TestRuleValidatorPassesCleanLabel(t *testing.T) {
	v := NewRuleValidator(testRuleSettings())
	finding := v.Validate(model.Concept{ID: "concept:1:cs", CanonicalLabel: "Computer Science"})
	assert.True(t, finding.Passed)
	assert.Equal(t, "Rule checks succeeded", finding.Detail)
}

func TestRuleValidatorFailsOnForbiddenPattern(t *testing.T) {
	v := NewRuleValidator(testRuleSettings())
	finding := v.Validate(model.Concept{ID: "concept:1:x", CanonicalLabel: "TBD Department"})
	assert.False(t, finding.Passed)
	assert.Contains(t, finding.Detail, "1 hard")
}

func TestRuleValidatorVenueHardFailure(t *testing.T) {
	v := NewRuleValidator(testRuleSettings())
	finding := v.Validate(model.Concept{ID: "concept:1:x", CanonicalLabel: "IEEE Symposium"})
	assert.False(t, finding.Passed)
	assert.Contains(t, finding.Detail, "venue_pattern")
}

func testEvidenceIndexer() *EvidenceIndexer {
	snapshots := []model.PageSnapshot{
		{URL: "https://mit.edu/cs", Institution: "MIT", Text: "The Computer Science department offers graduate programs."},
		{URL: "https://example.com/blog", Institution: "Blog", Text: "Computer Science is mentioned here too."},
	}
	return NewEvidenceIndexer(snapshots, []string{"mit.edu"}, 200)
}

func TestEvidenceIndexerQueryFindsAndScoresSnippets(t *testing.T) {
	idx := testEvidenceIndexer()
	snippets := idx.Query("Computer Science")
	require.Len(t, snippets, 2)

	var authorities []float64
	for _, s := range snippets {
		authorities = append(authorities, s.Authority)
	}
	assert.Contains(t, authorities, 1.0)
	assert.Contains(t, authorities, 0.5)
}

func TestWebValidatorPassesWithEnoughMatches(t *testing.T) {
	settings := config.WebValidationSettings{MinSnippetMatches: 2}
	v := NewWebValidator(settings, testEvidenceIndexer())
	finding, snippets := v.Validate(model.Concept{ID: "concept:1:cs", CanonicalLabel: "Computer Science"})
	assert.True(t, finding.Passed)
	assert.Len(t, snippets, 2)
}

func TestWebValidatorFailsBelowMinimum(t *testing.T) {
	settings := config.WebValidationSettings{MinSnippetMatches: 5}
	v := NewWebValidator(settings, testEvidenceIndexer())
	finding, _ := v.Validate(model.Concept{ID: "concept:1:cs", CanonicalLabel: "Computer Science"})
	assert.False(t, finding.Passed)
}

func TestStrengthAveragesAuthority(t *testing.T) {
	assert.Equal(t, 0.0, Strength(nil))
	assert.InDelta(t, 0.75, Strength([]Snippet{{Authority: 1.0}, {Authority: 0.5}}), 1e-9)
}

func TestLLMValidatorDisabledAlwaysPasses(t *testing.T) {
	v := NewLLMValidator(config.LLMValidationSettings{EntailmentEnabled: false}, nil)
	finding, confidence := v.Validate(context.Background(), model.Concept{ID: "concept:1:cs"}, nil)
	assert.True(t, finding.Passed)
	assert.Equal(t, 0.0, confidence)
}

func TestTruncateEvidenceBoundsWordCount(t *testing.T) {
	snippets := []Snippet{{Text: "one two three four five"}}
	assert.Equal(t, "one two three", truncateEvidence(snippets, 3))
}

// TestAggregatorPassesWhenStrengthMeetsThreshold implements a full
// rule+web+disabled-LLM pipeline where web evidence alone clears the
// configured threshold.
func TestAggregatorPassesWhenStrengthMeetsThreshold(t *testing.T) {
	rules := NewRuleValidator(testRuleSettings())
	web := NewWebValidator(config.WebValidationSettings{MinSnippetMatches: 1}, testEvidenceIndexer())
	llm := NewLLMValidator(config.LLMValidationSettings{EntailmentEnabled: false}, nil)

	settings := config.ValidationAggregationSettings{
		RuleWeight: 0.4,
		WebWeight:  0.6,
		LLMWeight:  0,
	}
	agg := NewAggregator(settings, rules, web, llm)
	obs := observability.New()
	defer obs.Phase("phase3_validation").Close()

	concept := model.Concept{ID: "concept:1:cs", CanonicalLabel: "Computer Science", Rationale: model.NewRationale()}
	result := agg.Run(context.Background(), concept, 0.7, obs)

	require.NotNil(t, result.ValidationPassed)
	assert.True(t, *result.ValidationPassed)
	require.NotNil(t, result.ValidationMetadata)
	assert.InDelta(t, 0.4+0.6*0.75, result.ValidationMetadata.Strength, 1e-9)
	assert.True(t, result.Rationale.PassedGates["validation"])
}

func TestAggregatorHardRuleFailureBlocksRegardlessOfStrength(t *testing.T) {
	rules := NewRuleValidator(testRuleSettings())
	web := NewWebValidator(config.WebValidationSettings{MinSnippetMatches: 1}, testEvidenceIndexer())
	llm := NewLLMValidator(config.LLMValidationSettings{EntailmentEnabled: false}, nil)

	settings := config.ValidationAggregationSettings{
		RuleWeight:            0,
		WebWeight:             1,
		LLMWeight:             0,
		HardRuleFailureBlocks: true,
	}
	agg := NewAggregator(settings, rules, web, llm)
	obs := observability.New()
	defer obs.Phase("phase3_validation").Close()

	concept := model.Concept{ID: "concept:1:x", CanonicalLabel: "TBD Computer Science", Rationale: model.NewRationale()}
	result := agg.Run(context.Background(), concept, 0.1, obs)

	require.NotNil(t, result.ValidationPassed)
	assert.False(t, *result.ValidationPassed)
	assert.False(t, result.Rationale.PassedGates["validation"])
}

func TestAggregatorTieBreakConservativeRequiresMinStrength(t *testing.T) {
	rules := NewRuleValidator(testRuleSettings())
	web := NewWebValidator(config.WebValidationSettings{MinSnippetMatches: 1}, testEvidenceIndexer())
	llm := NewLLMValidator(config.LLMValidationSettings{EntailmentEnabled: false}, nil)

	minStrength := 0.9
	settings := config.ValidationAggregationSettings{
		RuleWeight:           1,
		WebWeight:            0,
		LLMWeight:            0,
		TieBreakConservative: true,
		TieBreakMinStrength:  &minStrength,
	}
	agg := NewAggregator(settings, rules, web, llm)
	obs := observability.New()
	defer obs.Phase("phase3_validation").Close()

	concept := model.Concept{ID: "concept:1:cs", CanonicalLabel: "Computer Science", Rationale: model.NewRationale()}
	result := agg.Run(context.Background(), concept, 1.0, obs)

	require.NotNil(t, result.ValidationMetadata)
	assert.True(t, result.ValidationMetadata.TieBroken)
	assert.False(t, *result.ValidationPassed, "web strength 0.75 is below tie_break_min_strength 0.9")
}
