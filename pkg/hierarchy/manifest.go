package hierarchy

import (
	"github.com/vkhangpham/taxonomy-generation/pkg/config"
)

// BuildManifest renders the hierarchy assembly section written into
// the run manifest: the policy snapshot, graph statistics,
// synthesized placeholders, and quarantined orphans.
func BuildManifest(policy config.HierarchyPolicy, graph *HierarchyGraph, placeholders []string, orphans []Orphan) map[string]any {
	return map[string]any{
		"policy":              policy,
		"graph_stats":         graph.Statistics(),
		"placeholders":        placeholders,
		"quarantined_orphans": orphans,
	}
}
