// Package dedup implements deduplication: prefix and phonetic blocking,
// weighted similarity scoring with a probe that rejects pairs whose
// composite score falls below phonetic_probe_minimum (no separate
// phonetic score is computed), and a union-find merge graph that
// collapses duplicate concepts down to a deterministic winner.
package dedup

import (
	"sort"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

// Deduplicator applies the configured blocking, probe, and scoring
// policy to one level band at a time.
type Deduplicator struct {
	policy config.DeduplicationPolicy
}

// New builds a Deduplicator bound to policy.
func New(policy config.DeduplicationPolicy) *Deduplicator {
	return &Deduplicator{policy: policy}
}

// Run deduplicates concepts against threshold, returning the surviving
// concepts (winners, including untouched singletons) and one MergeOp
// per absorbed loser.
func (d *Deduplicator) Run(concepts []model.Concept, threshold float64, obs *observability.ObservabilityContext) ([]model.Concept, []model.MergeOp) {
	if len(concepts) == 0 {
		return nil, nil
	}

	blocks := buildBlocks(concepts, d.policy.Blocking)
	pairs := candidatePairs(blocks)

	uf := newUnionFind(len(concepts))
	scores := map[[2]int]float64{}

	for _, pair := range pairs {
		i, j := pair[0], pair[1]
		score, ok := Score(concepts[i], concepts[j], d.policy.Weights)
		if !ok {
			continue
		}
		probeMin := d.policy.Blocking.PhoneticProbeMinimum
		if probeMin > 0 && score < probeMin {
			obs.Increment("dedup_probe_rejected", 1)
			continue
		}
		scores[pair] = score
		if score >= threshold {
			uf.union(i, j)
		}
	}

	groups := uf.components(len(concepts))
	keys := make([]int, 0, len(groups))
	for root := range groups {
		keys = append(keys, root)
	}
	sort.Ints(keys)

	var winners []model.Concept
	var ops []model.MergeOp
	for _, root := range keys {
		members := groups[root]
		if len(members) == 1 {
			winners = append(winners, concepts[members[0]])
			continue
		}
		sort.Ints(members)
		winner, mergeOps := mergeComponent(concepts, members, scores)
		winners = append(winners, winner)
		ops = append(ops, mergeOps...)
		obs.Increment("concepts_merged", len(mergeOps))
		for _, op := range mergeOps {
			obs.Sample("merge", "merged", map[string]any{
				"winner": op.Winners[0],
				"loser":  op.Losers[0],
				"rule":   op.Rule,
				"score":  op.Score,
			})
		}
	}

	sort.Slice(winners, func(i, j int) bool { return winners[i].ID < winners[j].ID })
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Winners[0] != ops[j].Winners[0] {
			return ops[i].Winners[0] < ops[j].Winners[0]
		}
		return ops[i].Losers[0] < ops[j].Losers[0]
	})

	return winners, ops
}

// ThresholdForBand returns the similarity threshold for the level band
// containing level: 0-1 uses l0_l1, 2-3 uses l2_l3.
func ThresholdForBand(level model.Level, thresholds config.DeduplicationThresholds) float64 {
	if level <= model.Level1 {
		return thresholds.L0L1
	}
	return thresholds.L2L3
}
