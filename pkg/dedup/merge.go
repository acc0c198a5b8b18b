package dedup

import (
	"sort"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// unionFind is a standard disjoint-set structure over concept indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}

// components groups indices 0..n-1 by their union-find root.
func (u *unionFind) components(n int) map[int][]int {
	groups := map[int][]int{}
	for i := 0; i < n; i++ {
		root := u.find(i)
		groups[root] = append(groups[root], i)
	}
	return groups
}

// chooseWinner deterministically picks the surviving concept within a
// duplicate component: highest institution count, then highest record
// count, then lexicographically smallest id.
func chooseWinner(concepts []model.Concept, members []int) int {
	winner := members[0]
	for _, idx := range members[1:] {
		c, w := concepts[idx], concepts[winner]
		switch {
		case c.Support.Institutions != w.Support.Institutions:
			if c.Support.Institutions > w.Support.Institutions {
				winner = idx
			}
		case c.Support.Records != w.Support.Records:
			if c.Support.Records > w.Support.Records {
				winner = idx
			}
		case c.ID < w.ID:
			winner = idx
		}
	}
	return winner
}

// mergeComponent folds every loser in members (all but the winner) into
// the winner concept, returning the updated winner and one MergeOp per
// loser.
func mergeComponent(concepts []model.Concept, members []int, scores map[[2]int]float64) (model.Concept, []model.MergeOp) {
	winnerIdx := chooseWinner(concepts, members)
	winner := concepts[winnerIdx]

	aliasSet := map[string]struct{}{}
	for _, alias := range winner.Aliases {
		aliasSet[alias] = struct{}{}
	}

	var ops []model.MergeOp
	for _, idx := range members {
		if idx == winnerIdx {
			continue
		}
		loser := concepts[idx]

		if _, ok := aliasSet[loser.CanonicalLabel]; !ok {
			winner.Aliases = append(winner.Aliases, loser.CanonicalLabel)
			aliasSet[loser.CanonicalLabel] = struct{}{}
		}
		for _, alias := range loser.Aliases {
			if _, ok := aliasSet[alias]; !ok {
				winner.Aliases = append(winner.Aliases, alias)
				aliasSet[alias] = struct{}{}
			}
		}
		winner.Support = winner.Support.Merge(loser.Support)

		key := [2]int{winnerIdx, idx}
		if winnerIdx > idx {
			key = [2]int{idx, winnerIdx}
		}

		ops = append(ops, model.MergeOp{
			Winners: []string{winner.ID},
			Losers:  []string{loser.ID},
			Rule:    "duplicate",
			Score:   scores[key],
			Evidence: map[string]any{
				"winner_label": winner.CanonicalLabel,
				"loser_label":  loser.CanonicalLabel,
			},
		})
	}

	sort.Strings(winner.Aliases)
	sort.Slice(ops, func(i, j int) bool { return ops[i].Losers[0] < ops[j].Losers[0] })
	return winner, ops
}
