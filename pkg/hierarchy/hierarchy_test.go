package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func makeConcept(id string, level model.Level, parents []string) model.Concept {
	return model.Concept{ID: id, Level: level, CanonicalLabel: "Concept " + id, Parents: parents}
}

func testPolicy() config.HierarchyPolicy {
	return config.HierarchyPolicy{OrphanStrategy: "quarantine", PlaceholderPrefix: "placeholder::"}
}

func TestGraphAddConceptsAndStatistics(t *testing.T) {
	graph := NewHierarchyGraph(testPolicy())
	require.NoError(t, graph.AddConcept(makeConcept("root", model.Level0, nil)))
	require.NoError(t, graph.AddConcept(makeConcept("child", model.Level1, []string{"root"})))

	stats := graph.Statistics()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.Equal(t, 1, stats.LevelCounts[0])
	assert.Equal(t, 1, stats.LevelCounts[1])
}

func TestGraphUniquePathViolationRejected(t *testing.T) {
	graph := NewHierarchyGraph(testPolicy())
	require.NoError(t, graph.AddConcept(makeConcept("root", model.Level0, nil)))
	require.NoError(t, graph.AddConcept(makeConcept("parent_a", model.Level1, []string{"root"})))
	require.NoError(t, graph.AddConcept(makeConcept("parent_b", model.Level1, []string{"root"})))

	err := graph.AddConcept(makeConcept("child", model.Level2, []string{"parent_a", "parent_b"}))
	assert.Error(t, err)
}

func TestAssemblerQuarantineStrategyTracksOrphans(t *testing.T) {
	policy := config.HierarchyPolicy{OrphanStrategy: "quarantine", PlaceholderPrefix: "placeholder::"}
	assembler := NewHierarchyAssembler(policy)
	assembler.ProcessConcepts([]model.Concept{makeConcept("dangling", model.Level1, []string{"missing"})})

	assert.Empty(t, assembler.Graph().Concepts())
	require.NotEmpty(t, assembler.Orphans())
	assert.Equal(t, "quarantine", assembler.Orphans()[0].Strategy)
}

func TestAssemblerQuarantinesLevelAboveZeroWithNoParents(t *testing.T) {
	policy := config.HierarchyPolicy{OrphanStrategy: "quarantine", PlaceholderPrefix: "placeholder::"}
	assembler := NewHierarchyAssembler(policy)
	assembler.ProcessConcepts([]model.Concept{makeConcept("parentless", model.Level1, nil)})

	assert.Empty(t, assembler.Graph().Concepts())
	require.NotEmpty(t, assembler.Orphans())
	assert.Equal(t, "quarantine", assembler.Orphans()[0].Strategy)
	assert.Empty(t, assembler.Orphans()[0].MissingParent)
}

func TestAssemblerAttachesPlaceholderForLevelAboveZeroWithNoParents(t *testing.T) {
	policy := config.HierarchyPolicy{OrphanStrategy: "attach_placeholder", PlaceholderPrefix: "placeholder::"}
	assembler := NewHierarchyAssembler(policy)
	obs := observability.New()
	defer obs.Phase("phase4_finalize").Close()

	result := assembler.Run([]model.Concept{makeConcept("parentless", model.Level1, nil)}, obs)

	placeholderLevel0 := policy.PlaceholderPrefix + "level0"
	assert.Contains(t, result.Placeholders, placeholderLevel0)

	inserted, ok := result.Graph.Get("parentless")
	require.True(t, ok)
	assert.Equal(t, []string{placeholderLevel0}, inserted.Parents)
}

func TestAssemblerAttachPlaceholderCreatesChain(t *testing.T) {
	policy := config.HierarchyPolicy{OrphanStrategy: "attach_placeholder", PlaceholderPrefix: "placeholder::"}
	assembler := NewHierarchyAssembler(policy)
	obs := observability.New()
	defer obs.Phase("phase4_finalize").Close()

	result := assembler.Run([]model.Concept{makeConcept("topic", model.Level2, []string{"missing"})}, obs)

	placeholderLevel1 := policy.PlaceholderPrefix + "level1"
	placeholderLevel0 := policy.PlaceholderPrefix + "level0"
	assert.Contains(t, result.Placeholders, placeholderLevel1)
	assert.Contains(t, result.Placeholders, placeholderLevel0)

	inserted, ok := result.Graph.Get("topic")
	require.True(t, ok)
	assert.Equal(t, []string{placeholderLevel1}, inserted.Parents)
}

func TestValidatorDetectsMultiParentViolation(t *testing.T) {
	graph := NewHierarchyGraph(testPolicy())
	require.NoError(t, graph.AddConcept(makeConcept("root", model.Level0, nil)))
	// Simulate externally-corrupted state bypassing AddConcept's own check.
	graph.nodes["child"] = makeConcept("child", model.Level1, []string{"root", "ghost"})

	checker := NewInvariantChecker(nil)
	validator := NewGraphValidator(checker)
	report := validator.Run(graph)

	assert.False(t, report.Passed)
	codes := map[string]bool{}
	for _, v := range report.Violations {
		codes[v.Code] = true
	}
	assert.True(t, codes["non-unique-path"])
}

func TestRunGeneratesManifestStructure(t *testing.T) {
	policy := testPolicy()
	assembler := NewHierarchyAssembler(policy)
	obs := observability.New()
	defer obs.Phase("phase4_finalize").Close()

	result := assembler.Run([]model.Concept{makeConcept("root", model.Level0, nil)}, obs)

	require.Contains(t, result.Manifest, "policy")
	require.Contains(t, result.Manifest, "graph_stats")
	stats := result.Manifest["graph_stats"].(GraphStats)
	assert.Equal(t, 1, stats.NodeCount)
}
