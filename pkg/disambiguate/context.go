// Package disambiguate separates a shared canonical label covering
// multiple distinct senses into independent concepts, driven by
// context divergence across the SourceRecords each candidate
// concept's support was built from.
package disambiguate

import (
	"sort"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// defaultWindowSize bounds how many tokens on either side of a label
// mention are kept when building a ContextWindow.
const defaultWindowSize = 6

// ContextWindow is one mention of a concept's label inside a
// SourceRecord, trimmed to a token window around the match.
type ContextWindow struct {
	ConceptID     string
	Text          string
	Institution   string
	ParentLineage string
	SourceIndex   int
}

// ExtractParentLineageKey formats a concept's lineage for grouping:
// "L0:<root>" for a root concept, otherwise "L{level}:{parents}" with
// parents sorted and joined by "|".
func ExtractParentLineageKey(concept model.Concept) string {
	if concept.Level == model.Level0 && len(concept.Parents) == 0 {
		return "L0:<root>"
	}
	parents := append([]string(nil), concept.Parents...)
	sort.Strings(parents)
	joined := strings.Join(parents, "|")
	if joined == "" {
		joined = "<root>"
	}
	return "L" + levelDigit(concept.Level) + ":" + joined
}

func levelDigit(level model.Level) string {
	return string(rune('0' + int(level)))
}

// ExtractContextWindows scans records for mentions of concept's label
// (matched on its first token, case-insensitively) and returns one
// ContextWindow per matching record, trimmed to windowSize tokens on
// either side of the match.
func ExtractContextWindows(concept model.Concept, records []model.SourceRecord, windowSize int) []ContextWindow {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	fields := strings.Fields(concept.CanonicalLabel)
	if len(fields) == 0 {
		return nil
	}
	needle := strings.ToLower(fields[0])
	lineage := ExtractParentLineageKey(concept)

	var windows []ContextWindow
	for i, rec := range records {
		tokens := strings.Fields(rec.Text)
		matchAt := -1
		for t, tok := range tokens {
			if strings.ToLower(strings.Trim(tok, ".,;:!?")) == needle {
				matchAt = t
				break
			}
		}
		if matchAt < 0 {
			continue
		}
		lo := matchAt - windowSize
		if lo < 0 {
			lo = 0
		}
		hi := matchAt + windowSize + 1
		if hi > len(tokens) {
			hi = len(tokens)
		}
		windows = append(windows, ContextWindow{
			ConceptID:     concept.ID,
			Text:          strings.Join(tokens[lo:hi], " "),
			Institution:   rec.Provenance.Institution,
			ParentLineage: lineage,
			SourceIndex:   i,
		})
	}
	return windows
}

// ComputeTokenCooccurrence counts lowercase word frequency across
// contexts, keeping only tokens meeting minFrequency.
func ComputeTokenCooccurrence(contexts []ContextWindow, minFrequency int) map[string]int {
	counts := map[string]int{}
	for _, ctx := range contexts {
		for _, tok := range strings.Fields(strings.ToLower(ctx.Text)) {
			counts[tok]++
		}
	}
	for tok, n := range counts {
		if n < minFrequency {
			delete(counts, tok)
		}
	}
	return counts
}

func tokenSet(contexts []ContextWindow) map[string]struct{} {
	set := map[string]struct{}{}
	for _, ctx := range contexts {
		for _, tok := range strings.Fields(strings.ToLower(ctx.Text)) {
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

// ComputeContextDivergence blends parent-lineage disagreement with
// token-distribution divergence (1 - Jaccard overlap) into a single
// [0,1] score: 0 means identical lineage and vocabulary, 1 means
// disjoint on both fronts.
func ComputeContextDivergence(a, b []ContextWindow) float64 {
	parentDivergence := 0.0
	if lineageOf(a) != lineageOf(b) {
		parentDivergence = 1.0
	}
	tokenDivergence := 1 - jaccard(tokenSet(a), tokenSet(b))
	return 0.5*parentDivergence + 0.5*tokenDivergence
}

// ContextOverlap is the complement of the token-distribution component
// of ComputeContextDivergence: how much vocabulary a and b share.
func ContextOverlap(a, b []ContextWindow) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}

func lineageOf(contexts []ContextWindow) string {
	if len(contexts) == 0 {
		return ""
	}
	return contexts[0].ParentLineage
}

// SummarizeContextsForLLM dedups identical-text windows and caps the
// result at maxContexts, rendering each as a plain map suitable for
// prompt-template variables.
func SummarizeContextsForLLM(contexts []ContextWindow, maxContexts int) []map[string]any {
	seen := map[string]bool{}
	var summaries []map[string]any
	for _, ctx := range contexts {
		if seen[ctx.Text] {
			continue
		}
		seen[ctx.Text] = true
		summaries = append(summaries, map[string]any{
			"text":           ctx.Text,
			"institution":    ctx.Institution,
			"parent_lineage": ctx.ParentLineage,
		})
		if len(summaries) >= maxContexts {
			break
		}
	}
	return summaries
}
