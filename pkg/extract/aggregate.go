package extract

import (
	"sort"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// Aggregator merges normalized candidates sharing the same
// (level, normalized, parents-set) key into one AggregatedCandidate
//, tracking unique record fingerprints and
// institutions so S2 can compute support statistics from them.
type Aggregator struct {
	byKey map[string]*aggregateEntry
	order []string
}

type aggregateEntry struct {
	candidate    model.Candidate
	institutions map[string]struct{}
	fingerprints map[string]struct{}
	aliases      map[string]struct{}
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byKey: map[string]*aggregateEntry{}}
}

// Add folds one normalized candidate occurrence (from a single
// SourceRecord) into the aggregate, keyed on level+normalized+parents.
func (a *Aggregator) Add(level model.Level, normalized string, parents, aliases []string, institution, fingerprint string, count int) {
	key := aggregateKey(level, normalized, parents)
	entry, ok := a.byKey[key]
	if !ok {
		entry = &aggregateEntry{
			candidate: model.Candidate{
				Level:      level,
				Label:      normalized,
				Normalized: normalized,
				Parents:    append([]string(nil), parents...),
			},
			institutions: map[string]struct{}{},
			fingerprints: map[string]struct{}{},
			aliases:      map[string]struct{}{},
		}
		a.byKey[key] = entry
		a.order = append(a.order, key)
	}
	for _, alias := range aliases {
		if alias != "" {
			entry.aliases[alias] = struct{}{}
		}
	}
	if institution != "" {
		entry.institutions[institution] = struct{}{}
	}
	if fingerprint != "" {
		entry.fingerprints[fingerprint] = struct{}{}
	}
	entry.candidate.Support.Count += count
}

// Envelopes returns the aggregated candidates as CandidateEnvelopes,
// sorted by (normalized, parents) for deterministic JSONL emission.
func (a *Aggregator) Envelopes() []model.CandidateEnvelope {
	envelopes := make([]model.CandidateEnvelope, 0, len(a.order))
	for _, key := range a.order {
		entry := a.byKey[key]

		aliases := setToSortedSlice(entry.aliases)
		institutions := setToSortedSlice(entry.institutions)
		fingerprints := setToSortedSlice(entry.fingerprints)

		candidate := entry.candidate
		candidate.Aliases = aliases
		candidate.Support.Records = len(fingerprints)
		candidate.Support.Institutions = len(institutions)

		envelopes = append(envelopes, model.CandidateEnvelope{
			Candidate:          candidate,
			Institutions:       institutions,
			RecordFingerprints: fingerprints,
		})
	}
	sort.Slice(envelopes, func(i, j int) bool {
		a, b := envelopes[i].Candidate, envelopes[j].Candidate
		if a.Normalized != b.Normalized {
			return a.Normalized < b.Normalized
		}
		return strings.Join(a.Parents, ",") < strings.Join(b.Parents, ",")
	})
	return envelopes
}

func aggregateKey(level model.Level, normalized string, parents []string) string {
	sorted := append([]string(nil), parents...)
	sort.Strings(sorted)
	return strings.Join([]string{levelKey(level), normalized, strings.Join(sorted, "|")}, "\x1f")
}

func levelKey(level model.Level) string {
	switch level {
	case model.Level0:
		return "0"
	case model.Level1:
		return "1"
	case model.Level2:
		return "2"
	default:
		return "3"
	}
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
