// Package extract implements extraction and normalization: calling the
// taxonomy.extract prompt over each SourceRecord, normalizing the raw
// candidates it returns, resolving parents against a ParentIndex, and
// aggregating identical candidates into AggregatedCandidates.
package extract

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/llmprovider"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

// RawCandidate is the shape one element of the taxonomy.extract
// response takes, prior to normalization.
type RawCandidate struct {
	Label      string   `json:"label"`
	Normalized string   `json:"normalized"`
	Aliases    []string `json:"aliases"`
	Parents    []string `json:"parents"`
}

// ExtractResponse is the taxonomy.extract prompt's full JSON payload.
type ExtractResponse struct {
	Candidates []RawCandidate `json:"candidates"`
}

// Extractor drives S1 for a single level: one LLM call per record plus
// the full normalization pipeline for every candidate it returns.
type Extractor struct {
	runner     *llmprovider.Runner
	normalizer *Normalizer
	vocab      AcronymVocabulary
	labelCfg   config.LabelPolicy
}

// NewExtractor builds an Extractor bound to runner and policy.
func NewExtractor(runner *llmprovider.Runner, labelCfg config.LabelPolicy, vocab AcronymVocabulary) *Extractor {
	return &Extractor{
		runner:     runner,
		normalizer: NewNormalizer(labelCfg),
		vocab:      vocab,
		labelCfg:   labelCfg,
	}
}

// RecordFingerprint derives a stable per-record identifier from a
// SourceRecord's identifying fields, used by S2's deduplication
// (glossary: Fingerprint).
func RecordFingerprint(record model.SourceRecord) string {
	h := sha1.New()
	h.Write([]byte(record.Provenance.Institution))
	h.Write([]byte{0})
	h.Write([]byte(record.Provenance.URL))
	h.Write([]byte{0})
	h.Write([]byte(record.Provenance.Section))
	h.Write([]byte{0})
	h.Write([]byte(record.Text))
	return hex.EncodeToString(h.Sum(nil))
}

// ExtractRecord calls taxonomy.extract for record, normalizes every
// returned candidate, resolves its parents against parents, and folds
// the result into aggregator. Errors that exhaust retry/repair are
// quarantined (already recorded by the Runner) and the record is
// skipped rather than propagated, since record-level LLM failures are
// never fatal.
func (e *Extractor) ExtractRecord(ctx context.Context, record model.SourceRecord, level model.Level, parents *ParentIndex, aggregator *Aggregator, obs *observability.ObservabilityContext) error {
	obs.Increment("records_in", 1)

	fingerprint := RecordFingerprint(record)
	vars := map[string]any{
		"institution": record.Provenance.Institution,
		"level":       int(level),
		"source_text": record.Text,
	}

	var resp ExtractResponse
	if err := e.runner.Call(ctx, "taxonomy.extract", fingerprint, vars, &resp); err != nil {
		obs.Increment("quarantined", 1)
		return nil
	}

	for _, raw := range resp.Candidates {
		e.normalizeAndAggregate(raw, level, record, parents, aggregator, obs)
	}
	obs.Increment("candidates_out", len(resp.Candidates))
	return nil
}

func (e *Extractor) normalizeAndAggregate(raw RawCandidate, level model.Level, record model.SourceRecord, parents *ParentIndex, aggregator *Aggregator, obs *observability.ObservabilityContext) {
	label := raw.Label
	if label == "" {
		label = raw.Normalized
	}

	stripped, boilerplateAlias, _ := e.normalizer.StripBoilerplate(label)
	if level == model.Level0 {
		if withoutInst, changed := StripInstitutionPrefix(stripped, record.Provenance.Institution); changed {
			stripped = withoutInst
		}
	}

	acronymAliases := expandAcronymAliases(stripped, level, e.vocab, e.labelCfg.IncludeAmbiguousAcronyms)

	canonical, ok := e.normalizer.MinimalCanonicalForm(stripped)
	if !ok {
		obs.IncrementLabel("candidates_dropped", "canonical_form_out_of_bounds", 1)
		return
	}

	aliases := mergeAliases(raw.Aliases, boilerplateAlias, acronymAliases, canonical)

	var anchors []string
	if level != model.Level0 {
		for _, rawParent := range raw.Parents {
			if anchor, found := parents.Resolve(rawParent); found {
				anchors = append(anchors, anchor)
			} else {
				obs.IncrementLabel("unresolved_parents", rawParent, 1)
			}
		}
	}

	aggregator.Add(level, canonical, anchors, aliases, record.Provenance.Institution, RecordFingerprint(record), 1)
}

// mergeAliases deduplicates raw aliases plus any aliases produced by
// normalization, excluding the canonical label itself.
func mergeAliases(raw []string, boilerplateAlias string, extra []string, canonical string) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(s string) {
		if s == "" || s == canonical {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, a := range raw {
		add(a)
	}
	add(boilerplateAlias)
	for _, a := range extra {
		add(a)
	}
	return out
}
