package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// acronymTokenPattern matches a standalone all-caps token of 2+
// letters. The parenthesized form ("Artificial Intelligence (AI)") is
// handled separately by extractParenthesized.
var acronymTokenPattern = regexp.MustCompile(`\b([A-Z]{2,})\b`)

// parenthesizedPattern matches a trailing parenthetical acronym.
var parenthesizedPattern = regexp.MustCompile(`\(([A-Z]{2,})\)\s*$`)

// AcronymVocabulary is the controlled map S1 expands detected acronyms
// through. Entries are partitioned by level since the same acronym can
// mean different things at different tiers of the taxonomy (spec
// supplemented feature: "Acronym controlled-vocabulary expansion").
type AcronymVocabulary struct {
	ByLevel map[model.Level]map[string][]string
	Global  map[string][]string
}

// DefaultAcronymVocabulary returns a small, representative controlled
// map covering common academic abbreviations. No policy field extends
// it; the pipeline uses this map as is.
func DefaultAcronymVocabulary() AcronymVocabulary {
	return AcronymVocabulary{
		Global: map[string][]string{
			"AI":  {"artificial intelligence"},
			"ML":  {"machine learning"},
			"CS":  {"computer science"},
			"CV":  {"computer vision", "curriculum vitae"},
			"NLP": {"natural language processing"},
			"HCI": {"human-computer interaction"},
			"EE":  {"electrical engineering"},
			"ME":  {"mechanical engineering"},
			"PhD": {"doctor of philosophy"},
		},
	}
}

// expansions returns the candidate expansions known for acr at level,
// level-specific entries taking precedence over the global map.
func (v AcronymVocabulary) expansions(level model.Level, acr string) []string {
	if v.ByLevel != nil {
		if byAcr, ok := v.ByLevel[level]; ok {
			if exp, ok := byAcr[acr]; ok {
				return exp
			}
		}
	}
	return v.Global[acr]
}

// resolve picks a single expansion for acr, deterministically choosing
// the first alphabetical candidate when ambiguous and includeAmbiguous
// is false.
func (v AcronymVocabulary) resolve(level model.Level, acr string, includeAmbiguous bool) (string, bool) {
	candidates := v.expansions(level, acr)
	if len(candidates) == 0 {
		return "", false
	}
	if len(candidates) == 1 || includeAmbiguous {
		return candidates[0], true
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	return sorted[0], true
}

// detectedAcronyms returns every standalone uppercase token found in label.
func detectedAcronyms(label string) []string {
	var found []string
	seen := map[string]bool{}
	for _, m := range acronymTokenPattern.FindAllStringSubmatch(label, -1) {
		acr := m[1]
		if !seen[acr] {
			seen[acr] = true
			found = append(found, acr)
		}
	}
	return found
}

// expandAcronymAliases detects acronym tokens in label and, for every
// one the vocabulary recognizes, returns its resolved expansion as an
// additional alias candidate (mirroring how boilerplate removal
// produces aliases rather than mutating the label itself).
func expandAcronymAliases(label string, level model.Level, vocab AcronymVocabulary, includeAmbiguous bool) []string {
	var aliases []string
	for _, acr := range detectedAcronyms(label) {
		if expansion, ok := vocab.resolve(level, acr, includeAmbiguous); ok {
			aliases = append(aliases, expansion)
		}
	}
	if m := parenthesizedPattern.FindStringSubmatch(label); m != nil {
		withoutParen := strings.TrimSpace(parenthesizedPattern.ReplaceAllString(label, ""))
		if withoutParen != "" {
			aliases = append(aliases, withoutParen)
		}
	}
	return aliases
}
