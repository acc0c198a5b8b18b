package dedup

import (
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// blockKeys returns every blocking key concept belongs to: a prefix key
// of the configured length and, when enabled, its phonetic bucket key.
// Two concepts are candidate pairs only if they share at least one key.
func blockKeys(concept model.Concept, policy config.BlockingPolicy) []string {
	label := strings.ToLower(concept.CanonicalLabel)
	keys := make([]string, 0, 2)

	prefixLen := policy.PrefixLength
	if prefixLen <= 0 {
		prefixLen = 4
	}
	if runes := []rune(label); len(runes) > 0 {
		if prefixLen > len(runes) {
			prefixLen = len(runes)
		}
		keys = append(keys, "prefix:"+string(runes[:prefixLen]))
	}

	if policy.PhoneticBucketing {
		if code := DoubleMetaphone(label); code != "" {
			keys = append(keys, "phonetic:"+code)
		}
	}

	return keys
}

// buildBlocks groups concepts' indices by every blocking key they
// belong to, so later stages only compare pairs sharing a block.
func buildBlocks(concepts []model.Concept, policy config.BlockingPolicy) map[string][]int {
	blocks := map[string][]int{}
	for idx, c := range concepts {
		for _, key := range blockKeys(c, policy) {
			blocks[key] = append(blocks[key], idx)
		}
	}
	return blocks
}

// candidatePairs returns every distinct (i, j) index pair, i<j, sharing
// at least one block.
func candidatePairs(blocks map[string][]int) [][2]int {
	seen := map[[2]int]struct{}{}
	var pairs [][2]int
	for _, members := range blocks {
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				i, j := members[a], members[b]
				if i > j {
					i, j = j, i
				}
				key := [2]int{i, j}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				pairs = append(pairs, key)
			}
		}
	}
	return pairs
}
