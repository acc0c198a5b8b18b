package consolidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func decision(level model.Level, normalized string, parents []string) model.TokenVerificationDecision {
	return model.TokenVerificationDecision{
		Candidate: model.Candidate{
			Level:      level,
			Normalized: normalized,
			Parents:    parents,
			Aliases:    []string{normalized + " alias"},
			Support:    model.SupportStats{Records: 1, Institutions: 1, Count: 1},
		},
		Passed:    true,
		Rationale: model.NewRationale(),
	}
}

func TestSlugging(t *testing.T) {
	assert.Equal(t, "computer-vision", Slug("computer vision"))
	assert.Equal(t, "ai-ml", Slug("AI / ML"))
	assert.Equal(t, ConceptID(model.Level1, "artificial intelligence"), "concept:1:artificial-intelligence")
}

func TestSeedResolvesParentAnchorsAcrossLevels(t *testing.T) {
	c := New()
	obs := observability.New()
	defer obs.Phase("phase2_consolidation").Close()

	level0 := c.Seed(model.Level0, []model.TokenVerificationDecision{decision(model.Level0, "artificial intelligence", nil)}, obs)
	require.Len(t, level0, 1)
	assert.Equal(t, "concept:0:artificial-intelligence", level0[0].ID)
	assert.Empty(t, level0[0].Parents)

	level1 := c.Seed(model.Level1, []model.TokenVerificationDecision{decision(model.Level1, "computer vision", []string{"L0:artificial intelligence"})}, obs)
	require.Len(t, level1, 1)
	assert.Equal(t, []string{"concept:0:artificial-intelligence"}, level1[0].Parents)
}

func TestSeedSkipsFailedCandidates(t *testing.T) {
	c := New()
	obs := observability.New()
	defer obs.Phase("phase2_consolidation").Close()

	failed := decision(model.Level0, "dropped topic", nil)
	failed.Passed = false

	concepts := c.Seed(model.Level0, []model.TokenVerificationDecision{failed}, obs)
	assert.Empty(t, concepts)
}

func TestSeedDropsUnresolvableParentAnchor(t *testing.T) {
	c := New()
	obs := observability.New()
	defer obs.Phase("phase2_consolidation").Close()

	level1 := c.Seed(model.Level1, []model.TokenVerificationDecision{decision(model.Level1, "computer vision", []string{"L0:unknown root"})}, obs)
	require.Len(t, level1, 1)
	assert.Empty(t, level1[0].Parents)
}
