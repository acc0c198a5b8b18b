package hierarchy

import (
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// Violation is one structured invariant failure found by GraphValidator.
type Violation struct {
	Code      string `json:"code"`
	ConceptID string `json:"concept_id"`
	Detail    string `json:"detail"`
}

// ValidationReport is the outcome of one GraphValidator run.
type ValidationReport struct {
	Passed     bool        `json:"passed"`
	Violations []Violation `json:"violations"`
}

// InvariantChecker walks an assembled graph and reports every
// violation of the unique-path, acyclic, contiguous-level, and
// required-vocabulary invariants.
type InvariantChecker struct {
	requiredVocabularies map[int][]string
}

// NewInvariantChecker binds a checker to the per-level required
// vocabulary terms also enforced by RuleValidator. A nil or empty map
// skips the required-vocabulary check.
func NewInvariantChecker(requiredVocabularies map[int][]string) *InvariantChecker {
	return &InvariantChecker{requiredVocabularies: requiredVocabularies}
}

// Check walks graph and returns every violation found.
func (ic *InvariantChecker) Check(graph *HierarchyGraph) []Violation {
	var violations []Violation

	for _, c := range graph.Concepts() {
		if len(c.Parents) > 1 {
			violations = append(violations, Violation{Code: "non-unique-path", ConceptID: c.ID, Detail: "concept declares more than one parent"})
		}

		if c.Level > 0 && len(c.Parents) == 0 {
			violations = append(violations, Violation{Code: "orphan", ConceptID: c.ID, Detail: "concept above level 0 has no parent"})
		} else if len(c.Parents) == 1 {
			parent, ok := graph.Get(c.Parents[0])
			if !ok {
				violations = append(violations, Violation{Code: "orphan", ConceptID: c.ID, Detail: "parent " + c.Parents[0] + " not present in graph"})
			} else if parent.Level != c.Level-1 {
				violations = append(violations, Violation{Code: "level-skip", ConceptID: c.ID, Detail: "parent level does not equal concept level minus one"})
			}
		}

		if ic.hasCycle(graph, c.ID) {
			violations = append(violations, Violation{Code: "cycle", ConceptID: c.ID, Detail: "ancestry chain revisits a node"})
		}

		if required, ok := ic.requiredVocabularies[int(c.Level)]; ok && len(required) > 0 && !containsAny(c, required) {
			violations = append(violations, Violation{Code: "missing-required-vocab", ConceptID: c.ID, Detail: "label matches none of the level's required vocabulary"})
		}
	}

	return violations
}

func (ic *InvariantChecker) hasCycle(graph *HierarchyGraph, start string) bool {
	visited := map[string]bool{start: true}
	current := start
	for {
		c, ok := graph.Get(current)
		if !ok || len(c.Parents) != 1 {
			return false
		}
		next := c.Parents[0]
		if visited[next] {
			return true
		}
		visited[next] = true
		current = next
	}
}

func containsAny(c model.Concept, required []string) bool {
	haystack := strings.ToLower(c.CanonicalLabel)
	for _, alias := range c.Aliases {
		haystack += " " + strings.ToLower(alias)
	}
	for _, term := range required {
		if strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// GraphValidator runs an InvariantChecker over a graph and renders a
// pass/fail report.
type GraphValidator struct {
	checker *InvariantChecker
}

// NewGraphValidator binds a GraphValidator to checker.
func NewGraphValidator(checker *InvariantChecker) *GraphValidator {
	return &GraphValidator{checker: checker}
}

// Run validates graph and returns the full report.
func (v *GraphValidator) Run(graph *HierarchyGraph) ValidationReport {
	violations := v.checker.Check(graph)
	return ValidationReport{Passed: len(violations) == 0, Violations: violations}
}
