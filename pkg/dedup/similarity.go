package dedup

import (
	"strings"

	"github.com/xrash/smetrics"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

const jaroWinklerBoostThreshold = 0.7
const jaroWinklerPrefixSize = 4

// tokenJaccard scores the overlap of a and b's word sets.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// initials returns the first letter of each word in s, uppercased.
func initials(s string) string {
	var b strings.Builder
	for _, tok := range strings.Fields(s) {
		if tok == "" {
			continue
		}
		b.WriteString(strings.ToUpper(tok[:1]))
	}
	return b.String()
}

// isAcronymOf reports whether short is the initialism of long, e.g.
// "AI" of "artificial intelligence".
func isAcronymOf(short, long string) bool {
	trimmed := strings.TrimSpace(short)
	if trimmed == "" || strings.Contains(trimmed, " ") {
		return false
	}
	return strings.EqualFold(trimmed, initials(long))
}

// abbreviationScore returns 1.0 when one label is a known abbreviation
// of the other — either a literal initialism or present in aliases —
// and 0 otherwise.
func abbreviationScore(a model.Concept, b model.Concept) float64 {
	if isAcronymOf(a.CanonicalLabel, b.CanonicalLabel) || isAcronymOf(b.CanonicalLabel, a.CanonicalLabel) {
		return 1.0
	}
	for _, alias := range a.Aliases {
		if isAcronymOf(alias, b.CanonicalLabel) || isAcronymOf(b.CanonicalLabel, alias) {
			return 1.0
		}
	}
	for _, alias := range b.Aliases {
		if isAcronymOf(alias, a.CanonicalLabel) || isAcronymOf(a.CanonicalLabel, alias) {
			return 1.0
		}
	}
	return 0
}

// affixHint rewards a shared prefix or suffix word beyond what Jaccard
// already credits, covering cases like "X Research" vs "X".
func affixHint(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	if tokensA[0] == tokensB[0] || tokensA[len(tokensA)-1] == tokensB[len(tokensB)-1] {
		return 1.0
	}
	return 0
}

// parentSetsCompatible reports whether a and b share no disjoint
// parent: an empty parent set is compatible with anything (roots, or
// concepts not yet assembled into the DAG), otherwise at least one
// parent id must match.
func parentSetsCompatible(a, b model.Concept) bool {
	if len(a.Parents) == 0 || len(b.Parents) == 0 {
		return true
	}
	parentsA := tokenSet(strings.Join(a.Parents, " "))
	for _, p := range b.Parents {
		if _, ok := parentsA[p]; ok {
			return true
		}
	}
	return false
}

// Score computes the weighted composite similarity between a and b,
// gated by parent-set compatibility and short-circuited to 1.0 when
// one label is a known abbreviation of the other.
func Score(a, b model.Concept, weights config.SimilarityWeights) (float64, bool) {
	if !parentSetsCompatible(a, b) {
		return 0, false
	}

	if abbreviationScore(a, b) == 1.0 {
		return 1.0, true
	}

	jw := smetrics.JaroWinkler(a.CanonicalLabel, b.CanonicalLabel, jaroWinklerBoostThreshold, jaroWinklerPrefixSize)
	jaccard := tokenJaccard(a.CanonicalLabel, b.CanonicalLabel)
	affix := affixHint(a.CanonicalLabel, b.CanonicalLabel)

	total := weights.JaroWinkler + weights.TokenJaccard + weights.AffixHint
	if total <= 0 {
		total = 1
	}
	score := (weights.JaroWinkler*jw + weights.TokenJaccard*jaccard + weights.AffixHint*affix) / total
	if score > 1.0 {
		score = 1.0
	}
	return score, true
}
