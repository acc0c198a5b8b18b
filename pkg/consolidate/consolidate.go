// Package consolidate converts accepted S3 candidates into seed Concepts:
// stable ids, translated parent anchors, and carried-forward support and
// aliases.
package consolidate

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases normalized and collapses everything but letters and
// digits into single hyphens, trimming leading/trailing hyphens.
func Slug(normalized string) string {
	lower := strings.ToLower(normalized)
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}

// ConceptID formats the stable id for a concept at level with the given
// normalized label.
func ConceptID(level model.Level, normalized string) string {
	return "concept:" + strconv.Itoa(int(level)) + ":" + Slug(normalized)
}

// Consolidator accumulates accepted candidates level by level, resolving
// each candidate's parent anchors against ids minted for the prior level.
type Consolidator struct {
	anchorToID map[string]string
}

// New returns an empty Consolidator. Levels must be processed in
// ascending order so a level's parent anchors resolve against ids
// already minted for the level below it.
func New() *Consolidator {
	return &Consolidator{anchorToID: map[string]string{}}
}

// anchor mirrors extract.ParentIndex.Anchor without importing pkg/extract,
// keeping consolidate decoupled from S1 internals.
func anchor(level model.Level, normalized string) string {
	return "L" + strconv.Itoa(int(level)) + ":" + normalized
}

// Seed converts one level's kept, verified candidates into Concepts,
// registering each new concept's anchor for resolution by the next
// level up.
func (c *Consolidator) Seed(level model.Level, decisions []model.TokenVerificationDecision, obs *observability.ObservabilityContext) []model.Concept {
	concepts := make([]model.Concept, 0, len(decisions))

	for _, d := range decisions {
		if !d.Passed {
			continue
		}
		candidate := d.Candidate
		id := ConceptID(level, candidate.Normalized)

		parents := make([]string, 0, len(candidate.Parents))
		for _, p := range candidate.Parents {
			if resolved, ok := c.anchorToID[p]; ok {
				parents = append(parents, resolved)
			} else {
				obs.Increment("unresolved_parent_anchor", 1)
			}
		}
		sort.Strings(parents)

		rationale := d.Rationale
		rationale.SetGate("consolidation", true)

		concepts = append(concepts, model.Concept{
			ID:             id,
			Level:          level,
			CanonicalLabel: candidate.Normalized,
			Parents:        parents,
			Aliases:        append([]string(nil), candidate.Aliases...),
			Support:        candidate.Support,
			Rationale:      rationale,
		})

		c.anchorToID[anchor(level, candidate.Normalized)] = id
	}

	sort.Slice(concepts, func(i, j int) bool { return concepts[i].ID < concepts[j].ID })
	obs.IncrementLabel("concepts_seeded", strconv.Itoa(int(level)), len(concepts))
	return concepts
}
