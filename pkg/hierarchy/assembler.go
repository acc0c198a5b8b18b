package hierarchy

import (
	"sort"
	"strconv"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

// Orphan records a concept the assembler could not attach to an
// existing parent, and how it was handled.
type Orphan struct {
	ConceptID     string `json:"concept_id"`
	MissingParent string `json:"missing_parent"`
	Strategy      string `json:"strategy"`
}

// AssembleResult is the outcome of one HierarchyAssembler.Run call.
type AssembleResult struct {
	Graph        *HierarchyGraph
	Placeholders []string
	Orphans      []Orphan
	Manifest     map[string]any
}

// HierarchyAssembler inserts concepts into a HierarchyGraph in
// ascending level order, resolving missing parents per
// policy.OrphanStrategy.
type HierarchyAssembler struct {
	policy       config.HierarchyPolicy
	graph        *HierarchyGraph
	orphans      []Orphan
	placeholders map[string]bool
}

// NewHierarchyAssembler returns an assembler governed by policy, with
// a fresh empty graph.
func NewHierarchyAssembler(policy config.HierarchyPolicy) *HierarchyAssembler {
	return &HierarchyAssembler{
		policy:       policy,
		graph:        NewHierarchyGraph(policy),
		placeholders: map[string]bool{},
	}
}

// Graph returns the assembler's accumulated graph.
func (a *HierarchyAssembler) Graph() *HierarchyGraph { return a.graph }

// Orphans returns every orphan encountered so far.
func (a *HierarchyAssembler) Orphans() []Orphan { return a.orphans }

// ProcessConcepts inserts concepts into the graph in ascending level
// order (then by id, for determinism). Level-0 concepts are inserted
// directly; higher-level concepts whose declared parent is missing
// from the graph are quarantined or chained to synthesized
// placeholders per policy.OrphanStrategy.
func (a *HierarchyAssembler) ProcessConcepts(concepts []model.Concept) {
	ordered := append([]model.Concept(nil), concepts...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Level != ordered[j].Level {
			return ordered[i].Level < ordered[j].Level
		}
		return ordered[i].ID < ordered[j].ID
	})

	for _, concept := range ordered {
		a.insert(concept)
	}
}

func (a *HierarchyAssembler) insert(concept model.Concept) {
	if concept.Level == model.Level0 {
		_ = a.graph.AddConcept(concept)
		return
	}

	if len(concept.Parents) > 1 {
		a.orphans = append(a.orphans, Orphan{ConceptID: concept.ID, Strategy: "quarantine"})
		return
	}

	if len(concept.Parents) == 1 {
		parent := concept.Parents[0]
		if a.graph.Has(parent) {
			_ = a.graph.AddConcept(concept)
			return
		}
		a.resolveMissingParent(concept, parent)
		return
	}

	// A level>0 concept with zero parents reaches here when S1 or
	// consolidation dropped every unresolved anchor rather than an
	// explicit parent id going missing from the graph. It is the same
	// orphan condition and must resolve through the same strategy
	// switch, not bypass it via the level-0 fast path.
	a.resolveMissingParent(concept, "")
}

func (a *HierarchyAssembler) resolveMissingParent(concept model.Concept, missingParent string) {
	switch a.policy.OrphanStrategy {
	case "attach_placeholder":
		a.attachPlaceholderChain(&concept)
		_ = a.graph.AddConcept(concept)
	default:
		a.orphans = append(a.orphans, Orphan{ConceptID: concept.ID, MissingParent: missingParent, Strategy: "quarantine"})
	}
}

// attachPlaceholderChain synthesizes placeholder concepts from level 0
// up to concept.Level-1, each chained to the one below it, and
// rewrites concept.Parents to point at the topmost placeholder.
func (a *HierarchyAssembler) attachPlaceholderChain(concept *model.Concept) {
	var previous string
	for level := 0; level < int(concept.Level); level++ {
		id := a.policy.PlaceholderPrefix + "level" + strconv.Itoa(level)
		if !a.placeholders[id] {
			a.placeholders[id] = true
			placeholder := model.Concept{
				ID:             id,
				Level:          model.Level(level),
				CanonicalLabel: id,
			}
			if previous != "" {
				placeholder.Parents = []string{previous}
			}
			_ = a.graph.AddConcept(placeholder)
		}
		previous = id
	}
	concept.Parents = []string{previous}
}

// PlaceholderIDs returns every synthesized placeholder id, sorted.
func (a *HierarchyAssembler) PlaceholderIDs() []string {
	ids := make([]string, 0, len(a.placeholders))
	for id := range a.placeholders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run processes concepts and builds the full manifest section.
func (a *HierarchyAssembler) Run(concepts []model.Concept, obs *observability.ObservabilityContext) AssembleResult {
	a.ProcessConcepts(concepts)
	placeholders := a.PlaceholderIDs()

	if obs != nil {
		obs.IncrementLabel("hierarchy_orphans", a.policy.OrphanStrategy, len(a.orphans))
		obs.Increment("hierarchy_placeholders", len(placeholders))
	}

	return AssembleResult{
		Graph:        a.graph,
		Placeholders: placeholders,
		Orphans:      a.orphans,
		Manifest:     BuildManifest(a.policy, a.graph, placeholders, a.orphans),
	}
}
