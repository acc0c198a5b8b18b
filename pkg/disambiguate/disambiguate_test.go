package disambiguate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/llmprovider"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
	"github.com/vkhangpham/taxonomy-generation/pkg/promptregistry"
)

func makeConcept(id string, parents []string) model.Concept {
	return model.Concept{
		ID:             id,
		Level:          model.Level1,
		CanonicalLabel: "Machine Learning",
		Parents:        parents,
		Aliases:        []string{"ML"},
		Support:        model.SupportStats{Records: 6, Institutions: 4, Count: 20},
		Rationale:      model.NewRationale(),
	}
}

func makeRecord(text, institution string) model.SourceRecord {
	return model.SourceRecord{
		Text:       text,
		Provenance: model.Provenance{Institution: institution, URL: "https://example.org"},
	}
}

func TestExtractParentLineageKeyRootConcept(t *testing.T) {
	concept := makeConcept("root", nil)
	concept.Level = model.Level0
	assert.Equal(t, "L0:<root>", ExtractParentLineageKey(concept))
}

func TestExtractContextWindowsCapturesMentions(t *testing.T) {
	concept := makeConcept("c1", []string{"p1"})
	records := []model.SourceRecord{
		makeRecord("Our department researches Machine Learning methods extensively.", "inst"),
		makeRecord("The course explores Machine Learning applications in robotics.", "inst"),
	}
	contexts := ExtractContextWindows(concept, records, 6)
	require.Len(t, contexts, 2)
	for _, ctx := range contexts {
		assert.Contains(t, ctx.Text, "Machine")
		assert.Equal(t, "inst", ctx.Institution)
	}
}

func TestComputeTokenCooccurrenceAppliesFrequencyThreshold(t *testing.T) {
	contexts := []ContextWindow{
		{ConceptID: "c1", Text: "advanced machine learning systems", ParentLineage: "L1:p1", SourceIndex: 0},
		{ConceptID: "c1", Text: "machine learning pipelines", ParentLineage: "L1:p1", SourceIndex: 1},
	}
	cooccurrence := ComputeTokenCooccurrence(contexts, 2)
	assert.Equal(t, map[string]int{"machine": 2, "learning": 2}, cooccurrence)
}

func TestComputeContextDivergenceConsidersParentsAndTokens(t *testing.T) {
	ctxA := []ContextWindow{{ConceptID: "a", Text: "deep learning for vision", ParentLineage: "L1:p1", SourceIndex: 0}}
	ctxB := []ContextWindow{{ConceptID: "b", Text: "statistics for finance", ParentLineage: "L1:p2", SourceIndex: 0}}
	assert.Greater(t, ComputeContextDivergence(ctxA, ctxB), 0.5)
}

func TestSummarizeContextsForLLMLimitsDuplicates(t *testing.T) {
	contexts := []ContextWindow{
		{ConceptID: "c1", Text: "the lab studies reinforcement learning", SourceIndex: 0},
		{ConceptID: "c1", Text: "the lab studies reinforcement learning", SourceIndex: 1},
		{ConceptID: "c1", Text: "workshops include machine learning", SourceIndex: 2},
	}
	summaries := SummarizeContextsForLLM(contexts, 2)
	require.Len(t, summaries, 2)
	texts := map[string]bool{}
	for _, s := range summaries {
		texts[s["text"].(string)] = true
	}
	assert.Len(t, texts, 2)
}

func testDisambiguationPolicy() config.DisambiguationPolicy {
	return config.DisambiguationPolicy{
		DivergenceThreshold: 0.6,
		ConfidenceThreshold: 0.8,
		MinSeparableSenses:  2,
	}
}

func TestAmbiguityDetectorFlagsDivergentParents(t *testing.T) {
	detector := NewAmbiguityDetector(testDisambiguationPolicy())
	conceptA := makeConcept("a", []string{"p1"})
	conceptB := makeConcept("b", []string{"p2"})
	contexts := map[string][]ContextWindow{
		"a": {{ConceptID: "a", Text: "robotics research lab", ParentLineage: "L1:p1", Institution: "inst1"}},
		"b": {{ConceptID: "b", Text: "finance teaching track", ParentLineage: "L1:p2", Institution: "inst2"}},
	}

	candidates := detector.DetectCollisions([]model.Concept{conceptA, conceptB}, contexts)
	require.Len(t, candidates, 1)
	candidate := candidates[0]
	assert.Greater(t, candidate.ParentDivergence, 0.5)
	assert.Less(t, candidate.ContextOverlap, testDisambiguationPolicy().DivergenceThreshold)
}

func TestConceptSplitterBuildsNewConcepts(t *testing.T) {
	splitter := NewConceptSplitter(testDisambiguationPolicy())
	source := makeConcept("a", []string{"p1"})
	senses := []SenseDefinition{
		{Label: "Research", Gloss: "Research focus", ParentHints: []string{"p1"}, EvidenceIndices: []int{0}},
		{Label: "Teaching", Gloss: "Teaching focus", ParentHints: []string{"p2"}, EvidenceIndices: []int{1}},
	}
	parentMapping := map[string][]string{"Research": {"p1"}, "Teaching": {"p2"}}
	evidenceMapping := map[string][]int{"Research": {0}, "Teaching": {1}}

	decision := splitter.Split(source, senses, parentMapping, evidenceMapping, 0.85)
	require.Len(t, decision.NewConcepts, 2)
	labels := map[string]bool{}
	for _, c := range decision.NewConcepts {
		assert.Contains(t, c.ID, "a::split::")
		assert.True(t, c.Rationale.PassedGates["disambiguation"])
		labels[c.CanonicalLabel] = true
	}
	assert.True(t, labels["Research"], "each sense keeps its own label rather than inheriting the source's")
	assert.True(t, labels["Teaching"])
	assert.Equal(t, "a", decision.SplitOp.SourceID)
	assert.Len(t, decision.SplitOp.NewIDs, 2)
}

func buildTestRunner(t *testing.T, content string) *llmprovider.Runner {
	t.Helper()
	dir := t.TempDir()
	registryYAML := `
prompts:
  taxonomy.disambiguate:
    active: v1
    versions:
      v1:
        template: "{{.label}}"
`
	registryPath := filepath.Join(dir, "registry.yaml")
	require.NoError(t, os.WriteFile(registryPath, []byte(registryYAML), 0o644))

	registry, err := promptregistry.Load(registryPath, dir, dir)
	require.NoError(t, err)

	provider := fakeProvider{content: content}
	settings := config.LLMDeterminismSettings{
		RetryAttempts: 1,
		Repair:        config.RepairSettings{QuarantineAfterAttempts: 1},
	}
	obs := observability.New()
	return llmprovider.NewRunner(provider, registry, settings, obs)
}

type fakeProvider struct {
	content string
}

func (f fakeProvider) Call(ctx context.Context, req llmprovider.Request) (llmprovider.Response, error) {
	return llmprovider.Response{Content: f.content}, nil
}

const fakeSeparableResponse = `{
  "separable": true,
  "confidence": 0.9,
  "senses": [
    {"label": "Research", "gloss": "Focus on research programs", "parent_hints": ["p1"], "evidence_indices": [0]},
    {"label": "Teaching", "gloss": "Focus on teaching curriculum", "parent_hints": ["p2"], "evidence_indices": [1]}
  ]
}`

func TestDisambiguationProcessorCreatesSplitOps(t *testing.T) {
	runner := buildTestRunner(t, fakeSeparableResponse)
	policy := testDisambiguationPolicy()
	disambiguator := NewLLMDisambiguator(policy, runner)
	processor := NewDisambiguationProcessor(policy, disambiguator)

	conceptA := makeConcept("a", []string{"p1"})
	conceptB := makeConcept("b", []string{"p2"})

	recordsByID := map[string][]model.SourceRecord{
		"a": {makeRecord("Machine Learning research initiative", "inst1")},
		"b": {makeRecord("Machine Learning teaching center", "inst2")},
	}

	obs := observability.New()
	defer obs.Phase("phase3_disambiguation").Close()

	outcome := processor.Process(context.Background(), []model.Concept{conceptA, conceptB}, recordsByID, obs)

	require.NotEmpty(t, outcome.SplitOps, "expected at least one split operation")
	splitOp := outcome.SplitOps[0]
	assert.Contains(t, []string{"a", "b"}, splitOp.SourceID)
	require.Len(t, splitOp.NewIDs, 2)

	byID := map[string]model.Concept{}
	for _, c := range outcome.Concepts {
		byID[c.ID] = c
	}
	for _, newID := range splitOp.NewIDs {
		concept, ok := byID[newID]
		require.True(t, ok)
		assert.True(t, concept.Rationale.PassedGates["disambiguation"])
	}
}
