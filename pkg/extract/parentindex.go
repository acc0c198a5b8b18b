package extract

import (
	"fmt"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// ParentIndex resolves a child candidate's raw parent strings to
// anchors ("L{level}:{normalized}") by looking up accepted candidates
// from the immediately prior level.
type ParentIndex struct {
	level   model.Level
	anchors map[string]string // normalized or alias, exactly as added -> anchor
}

// NewParentIndex builds an index over accepted, normalized labels (and
// their aliases) at level, the level whose candidates can serve as
// parents for level+1.
func NewParentIndex(level model.Level) *ParentIndex {
	return &ParentIndex{level: level, anchors: map[string]string{}}
}

// Anchor formats the parent-reference string for a normalized label at
// a given level, per the glossary definition.
func Anchor(level model.Level, normalized string) string {
	return fmt.Sprintf("L%d:%s", level, normalized)
}

// Add registers normalized (and any aliases) as resolvable to their anchor.
func (p *ParentIndex) Add(normalized string, aliases []string) {
	anchor := Anchor(p.level, normalized)
	p.anchors[normalized] = anchor
	for _, alias := range aliases {
		if _, exists := p.anchors[alias]; !exists {
			p.anchors[alias] = anchor
		}
	}
}

// Resolve looks up normalized and its aliases against accepted
// prior-level labels, returning the matching anchor. Unknown parents
// at level>0 are permitted but the caller should count them.
func (p *ParentIndex) Resolve(candidate string) (string, bool) {
	anchor, ok := p.anchors[candidate]
	return anchor, ok
}
