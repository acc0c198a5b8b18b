package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

func testLabelPolicy() config.LabelPolicy {
	return config.LabelPolicy{
		MinimalCanonicalForm: config.MinimalCanonicalForm{
			Case:               "lower",
			RemovePunctuation:  true,
			FoldDiacritics:     true,
			CollapseWhitespace: true,
			MinLength:          2,
			MaxLength:          80,
			BoilerplatePattern: []string{`^Department of `, `^School of `},
		},
		IncludeAmbiguousAcronyms: false,
	}
}

func TestStripBoilerplate(t *testing.T) {
	n := NewNormalizer(testLabelPolicy())

	stripped, alias, changed := n.StripBoilerplate("Department of Computer Science")
	assert.True(t, changed)
	assert.Equal(t, "Computer Science", stripped)
	assert.Equal(t, "Department of Computer Science", alias)

	stripped, _, changed = n.StripBoilerplate("Computer Science")
	assert.False(t, changed)
	assert.Equal(t, "Computer Science", stripped)
}

func TestStripInstitutionPrefix(t *testing.T) {
	tests := []struct {
		name        string
		label       string
		institution string
		wantChanged bool
		want        string
	}{
		{"prefix present", "MIT Computer Science", "MIT", true, "Computer Science"},
		{"no prefix", "Computer Science", "MIT", false, "Computer Science"},
		{"empty institution", "Computer Science", "", false, "Computer Science"},
		{"prefix only", "MIT", "MIT", false, "MIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := StripInstitutionPrefix(tt.label, tt.institution)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMinimalCanonicalForm(t *testing.T) {
	n := NewNormalizer(testLabelPolicy())

	tests := []struct {
		name      string
		label     string
		wantLabel string
		wantOK    bool
	}{
		{"folds diacritics and case", "École Polytechnique", "ecole polytechnique", true},
		{"strips punctuation", "Machine-Learning, Inc.", "machine-learning inc", true},
		{"collapses whitespace", "Computer   Science", "computer science", true},
		{"too short fails bounds", "A", "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := n.MinimalCanonicalForm(tt.label)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLabel, got)
		})
	}
}

func TestExpandAcronymAliases(t *testing.T) {
	vocab := DefaultAcronymVocabulary()

	aliases := expandAcronymAliases("AI", model.Level1, vocab, false)
	assert.Contains(t, aliases, "artificial intelligence")

	// CV is ambiguous (computer vision vs curriculum vitae); disallowed
	// ambiguity must deterministically pick the first alphabetical entry.
	aliases = expandAcronymAliases("CV", model.Level1, vocab, false)
	assert.Equal(t, []string{"computer vision"}, aliases)

	aliases = expandAcronymAliases("Artificial Intelligence (AI)", model.Level1, vocab, false)
	assert.Contains(t, aliases, "Artificial Intelligence")
	assert.Contains(t, aliases, "artificial intelligence")
}

func TestParentIndexResolve(t *testing.T) {
	idx := NewParentIndex(model.Level0)
	idx.Add("computer science", []string{"cs"})

	anchor, ok := idx.Resolve("computer science")
	assert.True(t, ok)
	assert.Equal(t, "L0:computer science", anchor)

	anchor, ok = idx.Resolve("cs")
	assert.True(t, ok)
	assert.Equal(t, "L0:computer science", anchor)

	_, ok = idx.Resolve("physics")
	assert.False(t, ok)
}

func TestAggregatorMergesIdenticalKeys(t *testing.T) {
	agg := NewAggregator()
	agg.Add(model.Level1, "computer vision", []string{"L0:computer science"}, []string{"CV"}, "MIT", "rec-1", 1)
	agg.Add(model.Level1, "computer vision", []string{"L0:computer science"}, []string{"Computer Vision"}, "Stanford", "rec-2", 1)

	envelopes := agg.Envelopes()
	assert.Len(t, envelopes, 1)

	env := envelopes[0]
	assert.Equal(t, "computer vision", env.Candidate.Normalized)
	assert.Equal(t, 2, env.Candidate.Support.Count)
	assert.Equal(t, 2, env.Candidate.Support.Institutions)
	assert.Equal(t, 2, env.Candidate.Support.Records)
	assert.ElementsMatch(t, []string{"CV", "Computer Vision"}, env.Candidate.Aliases)
}
