package segment

import "strings"

// shingleSize is the word-shingle width used by the default intra-page
// similarity method.
const shingleSize = 3

// isNearDuplicate reports whether trimmed is a near-duplicate of any
// already-kept block at or above threshold, keeping the first
// occurrence in document order.
func isNearDuplicate(trimmed string, kept []block, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	shingles := wordShingles(trimmed, shingleSize)
	for _, k := range kept {
		if jaccardSimilarity(shingles, wordShingles(k.text, shingleSize)) >= threshold {
			return true
		}
	}
	return false
}

// wordShingles returns the set of contiguous word n-grams of size n in
// text, lowercased. A text shorter than n yields a single shingle of
// its full token sequence.
func wordShingles(text string, n int) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(text))
	shingles := map[string]struct{}{}
	if len(tokens) == 0 {
		return shingles
	}
	if len(tokens) < n {
		shingles[strings.Join(tokens, " ")] = struct{}{}
		return shingles
	}
	for i := 0; i+n <= len(tokens); i++ {
		shingles[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return shingles
}

// jaccardSimilarity computes |a ∩ b| / |a ∪ b| over two shingle sets.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for s := range a {
		if _, ok := b[s]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
