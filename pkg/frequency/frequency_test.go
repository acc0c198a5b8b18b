package frequency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func testThresholds() config.LevelThresholds {
	return config.LevelThresholds{
		Level0: config.LevelThreshold{MinInstitutions: 1, MinSrcCount: 1},
		Level1: config.LevelThreshold{MinInstitutions: 1, MinSrcCount: 1},
		Level2: config.LevelThreshold{MinInstitutions: 2, MinSrcCount: 1},
		Level3: config.LevelThreshold{MinInstitutions: 1, MinSrcCount: 1},
	}
}

func envelope(normalized string, parents []string, institution, fingerprint string, count int) model.CandidateEnvelope {
	return model.CandidateEnvelope{
		Candidate: model.Candidate{
			Level:      model.Level2,
			Label:      normalized,
			Normalized: normalized,
			Parents:    parents,
			Support:    model.SupportStats{Count: count},
		},
		Institutions:       []string{institution},
		RecordFingerprints: []string{fingerprint},
	}
}

// TestS2ThresholdGate checks that two envelopes for the same
// (normalized, parents) key from different institutions pass a
// min_institutions=2 gate with merged support.
func TestS2ThresholdGate(t *testing.T) {
	resolver := NewInstitutionResolver(config.InstitutionPolicy{}, "placeholder::unknown")
	filter := NewFilter(resolver, config.NearDuplicateDedupPolicy{}, testThresholds())
	obs := observability.New()
	defer obs.Phase("phase1_level2").Close()

	envelopes := []model.CandidateEnvelope{
		envelope("computer vision", []string{"L1:ai"}, "MIT", "rec-1", 2),
		envelope("computer vision", []string{"L1:ai"}, "Stanford", "rec-2", 1),
	}

	kept, dropped := filter.Run(model.Level2, envelopes, obs)
	require.Len(t, kept, 1)
	assert.Empty(t, dropped)

	decision := kept[0]
	assert.Equal(t, model.SupportStats{Records: 2, Institutions: 2, Count: 3}, decision.Candidate.Support)
	assert.True(t, decision.Rationale.PassedGates["frequency"])
}

// TestUnknownInstitutionCollapse checks that two envelopes with empty
// institutions collapse to a single placeholder identity.
func TestUnknownInstitutionCollapse(t *testing.T) {
	resolver := NewInstitutionResolver(config.InstitutionPolicy{}, "placeholder::unknown")
	filter := NewFilter(resolver, config.NearDuplicateDedupPolicy{}, testThresholds())
	obs := observability.New()
	defer obs.Phase("phase1_level2").Close()

	envelopes := []model.CandidateEnvelope{
		envelope("computer vision", []string{"L1:ai"}, "", "rec-1", 1),
		envelope("computer vision", []string{"L1:ai"}, "", "rec-2", 1),
	}

	kept, _ := filter.Run(model.Level2, envelopes, obs)
	require.Len(t, kept, 1)
	assert.Equal(t, []string{"placeholder::unknown"}, kept[0].Institutions)
	assert.Equal(t, 1, kept[0].Candidate.Support.Institutions)
}

func TestFilterDropsBelowThreshold(t *testing.T) {
	resolver := NewInstitutionResolver(config.InstitutionPolicy{}, "placeholder::unknown")
	filter := NewFilter(resolver, config.NearDuplicateDedupPolicy{}, testThresholds())
	obs := observability.New()
	defer obs.Phase("phase1_level2").Close()

	envelopes := []model.CandidateEnvelope{
		envelope("niche topic", []string{"L1:ai"}, "MIT", "rec-1", 1),
	}

	kept, dropped := filter.Run(model.Level2, envelopes, obs)
	assert.Empty(t, kept)
	require.Len(t, dropped, 1)
	assert.False(t, dropped[0].Rationale.PassedGates["frequency"])
	assert.NotEmpty(t, dropped[0].Rationale.Reasons)
}

func TestCanonicalizeFingerprint(t *testing.T) {
	policy := config.NearDuplicateDedupPolicy{
		Enabled:          true,
		PrefixDelimiters: []string{"#"},
		StripNumericSufx: true,
		MinPrefixLength:  3,
	}

	assert.Equal(t, "rec", CanonicalizeFingerprint("rec#42", policy))
	assert.Equal(t, "rec", CanonicalizeFingerprint("rec002", policy))

	disabled := policy
	disabled.Enabled = false
	assert.Equal(t, "rec#42", CanonicalizeFingerprint("rec#42", disabled))
}
