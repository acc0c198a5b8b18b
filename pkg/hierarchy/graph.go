// Package hierarchy assembles accepted concepts into the final DAG:
// one parent per node, orphan handling, and a structured invariant
// report over the assembled graph.
package hierarchy

import (
	"fmt"
	"sort"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/pipelineerr"
)

// GraphStats summarizes an assembled graph for the run manifest.
type GraphStats struct {
	NodeCount   int           `json:"node_count"`
	EdgeCount   int           `json:"edge_count"`
	LevelCounts map[int]int   `json:"level_counts"`
}

// HierarchyGraph holds accepted concepts keyed by id plus the
// child-lookup index built from each concept's single parent.
type HierarchyGraph struct {
	policy     config.HierarchyPolicy
	nodes      map[string]model.Concept
	childrenOf map[string][]string
}

// NewHierarchyGraph returns an empty graph governed by policy.
func NewHierarchyGraph(policy config.HierarchyPolicy) *HierarchyGraph {
	return &HierarchyGraph{
		policy:     policy,
		nodes:      map[string]model.Concept{},
		childrenOf: map[string][]string{},
	}
}

// AddConcept inserts concept, enforcing the unique-path invariant:
// concepts declaring more than one parent are rejected with a
// non-unique-path error before ever entering the graph. A concept with
// no parent is accepted at any level; InvariantChecker reports those
// above level 0 as orphans.
func (g *HierarchyGraph) AddConcept(concept model.Concept) error {
	if len(concept.Parents) > 1 {
		return fmt.Errorf("%w: non-unique-path: concept %s declares %d parents", pipelineerr.ErrInvariantViolation, concept.ID, len(concept.Parents))
	}
	g.nodes[concept.ID] = concept
	if len(concept.Parents) == 1 {
		parent := concept.Parents[0]
		g.childrenOf[parent] = append(g.childrenOf[parent], concept.ID)
	}
	return nil
}

// Get looks up a concept by id.
func (g *HierarchyGraph) Get(id string) (model.Concept, bool) {
	c, ok := g.nodes[id]
	return c, ok
}

// Has reports whether id has been inserted.
func (g *HierarchyGraph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Concepts returns every inserted concept, sorted by id for
// deterministic output.
func (g *HierarchyGraph) Concepts() []model.Concept {
	out := make([]model.Concept, 0, len(g.nodes))
	for _, c := range g.nodes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Children returns the ids of id's direct children, sorted.
func (g *HierarchyGraph) Children(id string) []string {
	children := append([]string(nil), g.childrenOf[id]...)
	sort.Strings(children)
	return children
}

// Statistics reports node/edge counts and per-level node counts.
func (g *HierarchyGraph) Statistics() GraphStats {
	stats := GraphStats{LevelCounts: map[int]int{}}
	for _, c := range g.nodes {
		stats.NodeCount++
		stats.LevelCounts[int(c.Level)]++
		if len(c.Parents) == 1 {
			stats.EdgeCount++
		}
	}
	return stats
}
