package validation

import (
	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// WebValidator corroborates a concept's label against an
// EvidenceIndexer built from crawled PageSnapshots.
type WebValidator struct {
	settings config.WebValidationSettings
	indexer  *EvidenceIndexer
}

// NewWebValidator binds a WebValidator to settings and an indexer.
func NewWebValidator(settings config.WebValidationSettings, indexer *EvidenceIndexer) *WebValidator {
	return &WebValidator{settings: settings, indexer: indexer}
}

// Validate queries the indexer for concept's label and passes when at
// least min_snippet_matches snippets are found.
func (v *WebValidator) Validate(concept model.Concept) (model.ValidationFinding, []Snippet) {
	snippets := v.indexer.Query(concept.CanonicalLabel)
	passed := len(snippets) >= v.settings.MinSnippetMatches

	detail := "insufficient evidence"
	if passed {
		detail = "corroborated by web evidence"
	}

	return model.ValidationFinding{
		ConceptID: concept.ID,
		Mode:      model.ValidationModeWeb,
		Passed:    passed,
		Detail:    detail,
	}, snippets
}

// Strength averages snippet authority into a single [0,1] signal for
// weighted aggregation.
func Strength(snippets []Snippet) float64 {
	if len(snippets) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range snippets {
		total += s.Authority
	}
	return total / float64(len(snippets))
}
