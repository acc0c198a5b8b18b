package observability

import (
	"sort"
	"strconv"
	"strings"
)

// ManifestPayload is the observability section embedded in the run
// manifest: sorted mappings, sequence-sorted slices, integer-coerced
// counters, and dotted threshold keys flattened into nested objects.
type ManifestPayload struct {
	Counters       map[string]map[string]any     `json:"counters"`
	Quarantine     QuarantinePayload              `json:"quarantine"`
	Evidence       EvidencePayload                `json:"evidence"`
	Operations     []Operation                    `json:"operations"`
	Performance    map[string]map[string]float64  `json:"performance"`
	PromptVersions map[string]string              `json:"prompt_versions"`
	Thresholds     map[string]any                 `json:"thresholds"`
	Seeds          map[string]int64               `json:"seeds"`
	Checksum       string                         `json:"checksum"`
	CapturedAt     string                         `json:"captured_at,omitempty"`
}

// QuarantinePayload is the manifest-shaped quarantine summary.
type QuarantinePayload struct {
	Total    int              `json:"total"`
	ByReason map[string]int   `json:"by_reason"`
	Items    []QuarantineItem `json:"items"`
}

// EvidencePayload is the manifest-shaped evidence summary.
type EvidencePayload struct {
	Samples         map[string][]EvidenceSample `json:"samples"`
	TotalConsidered map[string]int              `json:"total_considered"`
}

// coerceCounterInt mirrors the Python int(value) coercion: a value that
// cannot be interpreted as an integer becomes 0 rather than aborting
// manifest assembly.
func coerceCounterInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func aggregateCounters(counters map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(counters))
	for _, phase := range StableSorted(counters) {
		bucket := counters[phase]
		aggregated := make(map[string]any, len(bucket))
		for _, name := range StableSorted(bucket) {
			value := bucket[name]
			if labels, ok := value.(map[string]int); ok {
				sortedLabels := make(map[string]int, len(labels))
				for _, label := range StableSorted(labels) {
					sortedLabels[label] = labels[label]
				}
				aggregated[name] = sortedLabels
				continue
			}
			aggregated[name] = coerceCounterInt(value)
		}
		out[phase] = aggregated
	}
	return out
}

func formatEvidence(evidence map[string][]EvidenceSample) EvidencePayload {
	phases := make(map[string]bool)
	for phase := range evidence {
		phases[phase] = true
	}
	ordered := map[string][]EvidenceSample{}
	totals := map[string]int{}
	names := make([]string, 0, len(phases))
	for phase := range phases {
		names = append(names, phase)
	}
	sort.Strings(names)
	for _, phase := range names {
		samples := append([]EvidenceSample(nil), evidence[phase]...)
		sort.Slice(samples, func(i, j int) bool { return samples[i].Sequence < samples[j].Sequence })
		ordered[phase] = samples
		totals[phase] = len(samples)
	}
	return EvidencePayload{Samples: ordered, TotalConsidered: totals}
}

func formatQuarantine(items []QuarantineItem) QuarantinePayload {
	sorted := append([]QuarantineItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	byReason := map[string]int{}
	for _, item := range sorted {
		byReason[item.Reason]++
	}
	return QuarantinePayload{Total: len(sorted), ByReason: byReason, Items: sorted}
}

func formatOperations(operations []Operation) []Operation {
	sorted := append([]Operation(nil), operations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	return sorted
}

// flattenThresholds expands dotted keys like "level_thresholds.level_0"
// into nested objects; the longest path wins when two registrations
// collide on a parent-vs-leaf position.
func flattenThresholds(thresholds map[string]any) map[string]any {
	type entry struct {
		path  []string
		value any
	}
	entries := make([]entry, 0, len(thresholds))
	for _, key := range StableSorted(thresholds) {
		entries = append(entries, entry{path: strings.Split(key, "."), value: thresholds[key]})
	}
	sort.Slice(entries, func(i, j int) bool { return len(entries[i].path) < len(entries[j].path) })

	root := map[string]any{}
	for _, e := range entries {
		cursor := root
		for i, segment := range e.path {
			if i == len(e.path)-1 {
				cursor[segment] = e.value
				continue
			}
			next, ok := cursor[segment].(map[string]any)
			if !ok {
				next = map[string]any{}
				cursor[segment] = next
			}
			cursor = next
		}
	}
	return root
}

// BuildManifestPayload assembles the final, sorted, coerced payload
// from a snapshot, ready for embedding in a run manifest.
func BuildManifestPayload(snap Snapshot) ManifestPayload {
	promptVersions := map[string]string{}
	for _, k := range StableSorted(snap.PromptVersions) {
		promptVersions[k] = snap.PromptVersions[k]
	}
	seeds := map[string]int64{}
	for _, k := range StableSorted(snap.Seeds) {
		seeds[k] = snap.Seeds[k]
	}
	performance := map[string]map[string]float64{}
	for _, phase := range StableSorted(snap.Performance) {
		metrics := snap.Performance[phase]
		ordered := make(map[string]float64, len(metrics))
		for _, m := range StableSorted(metrics) {
			ordered[m] = metrics[m]
		}
		performance[phase] = ordered
	}
	return ManifestPayload{
		Counters:       aggregateCounters(snap.Counters),
		Quarantine:     formatQuarantine(snap.Quarantine),
		Evidence:       formatEvidence(snap.Evidence),
		Operations:     formatOperations(snap.Operations),
		Performance:    performance,
		PromptVersions: promptVersions,
		Thresholds:     flattenThresholds(snap.Thresholds),
		Seeds:          seeds,
		Checksum:       snap.Checksum,
		CapturedAt:     snap.CapturedAt,
	}
}
