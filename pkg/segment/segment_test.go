package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func testPolicy() config.RawExtractionPolicy {
	return config.RawExtractionPolicy{
		SegmentOnHeaders:            true,
		SegmentOnLists:              true,
		SegmentOnTables:             true,
		MinChars:                    5,
		MaxChars:                    500,
		TargetLanguage:              "en",
		LanguageConfidenceThreshold: 0.8,
		RequireLanguageConfidence:   true,
		IntraPageDedupEnabled:       true,
		SimilarityThreshold:         0.8,
		SimilarityMethod:            "jaccard_shingles",
		RemoveBoilerplate:           true,
		BoilerplatePatterns:        []string{`(?i)^all rights reserved\.?$`},
		DetectSections:              true,
		SectionHeaderPatterns:       nil,
	}
}

func testSnapshot(text string) model.PageSnapshot {
	return model.PageSnapshot{
		Institution:        "MIT",
		URL:                "https://example.edu/page",
		Lang:               "en",
		LanguageConfidence: 0.95,
		Text:               text,
	}
}

func TestSegmentRejectsLanguageMismatch(t *testing.T) {
	seg := New(testPolicy())
	obs := observability.New()
	defer obs.Phase("phase1_level0").Close()

	snap := testSnapshot("Some content here.")
	snap.Lang = "fr"

	records := seg.Segment(snap, obs)
	assert.Empty(t, records)
}

func TestSegmentRejectsLowConfidence(t *testing.T) {
	seg := New(testPolicy())
	obs := observability.New()
	defer obs.Phase("phase1_level0").Close()

	snap := testSnapshot("Some content here.")
	snap.LanguageConfidence = 0.1

	records := seg.Segment(snap, obs)
	assert.Empty(t, records)
}

func TestSegmentRemovesBoilerplateAndHonorsLength(t *testing.T) {
	seg := New(testPolicy())
	obs := observability.New()
	defer obs.Phase("phase1_level0").Close()

	snap := testSnapshot("All Rights Reserved.\n\nThe Department of Computer Science offers many programs.\n\nHi\n")

	records := seg.Segment(snap, obs)
	require.Len(t, records, 1)
	assert.Equal(t, "The Department of Computer Science offers many programs.", records[0].Text)
	assert.Equal(t, "paragraph", records[0].Hints.BlockType)
}

func TestSegmentGroupsHeaderListAndTableBlocks(t *testing.T) {
	seg := New(testPolicy())
	obs := observability.New()
	defer obs.Phase("phase1_level0").Close()

	text := "# Research Areas\n" +
		"- Artificial Intelligence\n" +
		"- Computer Vision\n\n" +
		"| Program | Degree |\n" +
		"| PhD | Doctorate |\n"

	snap := testSnapshot(text)
	records := seg.Segment(snap, obs)

	var blockTypes []string
	for _, r := range records {
		blockTypes = append(blockTypes, r.Hints.BlockType)
	}
	assert.Contains(t, blockTypes, "header")
	assert.Contains(t, blockTypes, "list")
	assert.Contains(t, blockTypes, "table")

	for _, r := range records {
		if r.Hints.BlockType != "header" {
			assert.Equal(t, "Research Areas", r.Provenance.Section)
		}
	}
}

func TestSegmentCollapsesIntraPageNearDuplicates(t *testing.T) {
	seg := New(testPolicy())
	obs := observability.New()
	defer obs.Phase("phase1_level0").Close()

	text := "The Department of Biology studies living organisms in depth\n\n" +
		"The Department of Biology studies living organisms in depth today\n"

	records := seg.Segment(testSnapshot(text), obs)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Text, "Department of Biology")
}

func TestJaccardSimilarityPureFunction(t *testing.T) {
	a := wordShingles("the quick brown fox jumps", shingleSize)
	b := wordShingles("the quick brown fox leaps", shingleSize)
	sim := jaccardSimilarity(a, b)
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)

	identical := jaccardSimilarity(a, a)
	assert.Equal(t, 1.0, identical)
}
