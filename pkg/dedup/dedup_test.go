package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func testDedupPolicy() config.DeduplicationPolicy {
	return config.DeduplicationPolicy{
		Thresholds: config.DeduplicationThresholds{L0L1: 0.8, L2L3: 0.75},
		Blocking: config.BlockingPolicy{
			PrefixLength:      1,
			PhoneticBucketing: true,
		},
		Weights: config.SimilarityWeights{
			JaroWinkler:  0.5,
			TokenJaccard: 0.4,
			AffixHint:    0.1,
		},
	}
}

func TestNormalizeForPhonetic(t *testing.T) {
	assert.Equal(t, "computer science", NormalizeForPhonetic("Computer-Science!"))
}

func TestDoubleMetaphoneConsistency(t *testing.T) {
	assert.Equal(t, DoubleMetaphone("Computer Science"), DoubleMetaphone("computer science"))
	assert.NotEmpty(t, DoubleMetaphone("Artificial Intelligence"))
}

func TestBucketByPhoneticGroupsSimilarSpellings(t *testing.T) {
	buckets := BucketByPhonetic([]string{"Data Science", "Deta Sciense", "Machine Learning"})
	var sharedKey string
	for key, values := range buckets {
		for _, v := range values {
			if v == "Data Science" {
				sharedKey = key
			}
		}
	}
	require.NotEmpty(t, sharedKey)
	assert.Contains(t, buckets[sharedKey], "Deta Sciense")
}

// TestDeduplicationAbbreviationMerge checks that a canonical label and its
// abbreviated alias merge under the level-2/3 threshold with one MergeOp
// recording the absorbed loser.
func TestDeduplicationAbbreviationMerge(t *testing.T) {
	root := model.Concept{ID: "concept:1:ai", CanonicalLabel: "artificial intelligence"}
	a := model.Concept{
		ID:             "concept:2:ml-research",
		CanonicalLabel: "ML Research",
		Aliases:        []string{"ML"},
		Parents:        []string{root.ID},
		Support:        model.SupportStats{Records: 2, Institutions: 2, Count: 3},
	}
	b := model.Concept{
		ID:             "concept:2:machine-learning",
		CanonicalLabel: "Machine Learning",
		Parents:        []string{root.ID},
		Support:        model.SupportStats{Records: 1, Institutions: 3, Count: 2},
	}

	dedup := New(testDedupPolicy())
	obs := observability.New()
	defer obs.Phase("phase3_deduplication").Close()

	winners, ops := dedup.Run([]model.Concept{a, b}, 0.75, obs)

	require.Len(t, winners, 1)
	require.Len(t, ops, 1)
	assert.Equal(t, "duplicate", ops[0].Rule)
	assert.Equal(t, 1.0, ops[0].Score)

	winner := winners[0]
	assert.Equal(t, b.ID, winner.ID, "b has more institutions, so it wins deterministically")
	assert.Contains(t, winner.Aliases, "ML")
	assert.Contains(t, winner.Aliases, "ML Research")
	assert.Equal(t, model.SupportStats{Records: 3, Institutions: 5, Count: 5}, winner.Support)
}

func TestDeduplicationSkipsDisjointParents(t *testing.T) {
	a := model.Concept{ID: "concept:2:a", CanonicalLabel: "Machine Learning", Parents: []string{"concept:1:ai"}}
	b := model.Concept{ID: "concept:2:b", CanonicalLabel: "Machine Learning", Parents: []string{"concept:1:robotics"}}

	dedup := New(testDedupPolicy())
	obs := observability.New()
	defer obs.Phase("phase3_deduplication").Close()

	winners, ops := dedup.Run([]model.Concept{a, b}, 0.75, obs)
	assert.Len(t, winners, 2)
	assert.Empty(t, ops)
}

func TestDeduplicationSamplesMergeEvidence(t *testing.T) {
	root := model.Concept{ID: "concept:1:ai", CanonicalLabel: "artificial intelligence"}
	a := model.Concept{
		ID:             "concept:2:ml-research",
		CanonicalLabel: "ML Research",
		Aliases:        []string{"ML"},
		Parents:        []string{root.ID},
		Support:        model.SupportStats{Records: 2, Institutions: 2, Count: 3},
	}
	b := model.Concept{
		ID:             "concept:2:machine-learning",
		CanonicalLabel: "Machine Learning",
		Parents:        []string{root.ID},
		Support:        model.SupportStats{Records: 1, Institutions: 3, Count: 2},
	}

	dedup := New(testDedupPolicy())
	obs := observability.New()
	scope := obs.Phase("phase3_deduplication")

	_, ops := dedup.Run([]model.Concept{a, b}, 0.75, obs)
	require.Len(t, ops, 1)
	scope.Close()

	snap := obs.Snapshot(time.Unix(0, 0))
	samples := snap.Evidence["phase3_deduplication"]
	require.Len(t, samples, 1)
	assert.Equal(t, "merge", samples[0].Category)
	assert.Equal(t, "merged", samples[0].Outcome)
	assert.Equal(t, ops[0].Losers[0], samples[0].Payload["loser"])
}

func TestThresholdForBand(t *testing.T) {
	thresholds := config.DeduplicationThresholds{L0L1: 0.8, L2L3: 0.7}
	assert.Equal(t, 0.8, ThresholdForBand(model.Level1, thresholds))
	assert.Equal(t, 0.7, ThresholdForBand(model.Level2, thresholds))
}
