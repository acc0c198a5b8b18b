// Package segment implements S0, the raw-extraction stage that turns
// crawled PageSnapshots (or spreadsheet rows, handled upstream by the
// level-0 Excel ingestion collaborator) into SourceRecords: language
// filtering, boilerplate removal, header/list/table segmentation, and
// intra-page near-duplicate collapse.
package segment

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

var (
	markdownHeaderPattern = regexp.MustCompile(`^#{1,6}\s+\S`)
	listPrefixPattern     = regexp.MustCompile(`^\s*([-*+•]|\d+[.)])\s+\S`)
	tableRowPattern       = regexp.MustCompile(`^\s*\|.*\|\s*$`)
)

// block is one segmented unit of text before it becomes a SourceRecord.
type block struct {
	text      string
	blockType string
	section   string
}

// Segmenter compiles a RawExtractionPolicy once and applies it to a
// stream of PageSnapshots, following a compile-once-apply-many shape.
type Segmenter struct {
	policy        config.RawExtractionPolicy
	boilerplate   []*regexp.Regexp
	sectionHeader []*regexp.Regexp
}

// New compiles policy's regex sets. Invalid patterns are logged and
// skipped rather than failing the run.
func New(policy config.RawExtractionPolicy) *Segmenter {
	s := &Segmenter{policy: policy}
	for _, pattern := range policy.BoilerplatePatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			slog.Error("segment: skipping invalid boilerplate pattern", "pattern", pattern, "error", err)
			continue
		}
		s.boilerplate = append(s.boilerplate, compiled)
	}
	for _, pattern := range policy.SectionHeaderPatterns {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			slog.Error("segment: skipping invalid section header pattern", "pattern", pattern, "error", err)
			continue
		}
		s.sectionHeader = append(s.sectionHeader, compiled)
	}
	return s
}

// Segment converts one PageSnapshot into its surviving SourceRecords,
// reporting rejections and counts into obs under the current phase.
func (s *Segmenter) Segment(snap model.PageSnapshot, obs *observability.ObservabilityContext) []model.SourceRecord {
	obs.Increment("snapshots_in", 1)

	if s.policy.TargetLanguage != "any" && s.policy.TargetLanguage != "" && snap.Lang != s.policy.TargetLanguage {
		obs.IncrementLabel("snapshots_skipped", "language_mismatch", 1)
		return nil
	}
	if s.policy.RequireLanguageConfidence && snap.LanguageConfidence < s.policy.LanguageConfidenceThreshold {
		obs.IncrementLabel("snapshots_skipped", "low_language_confidence", 1)
		return nil
	}

	lines := s.cleanedLines(snap.Text)
	blocks := s.segmentBlocks(lines)

	var kept []block
	for _, b := range blocks {
		trimmed := strings.TrimSpace(b.text)
		length := len(trimmed)
		if length < s.policy.MinChars || (s.policy.MaxChars > 0 && length > s.policy.MaxChars) {
			obs.IncrementLabel("blocks_skipped", "length_out_of_bounds", 1)
			continue
		}
		if s.policy.IntraPageDedupEnabled && isNearDuplicate(trimmed, kept, s.policy.SimilarityThreshold) {
			obs.IncrementLabel("blocks_skipped", "intra_page_duplicate", 1)
			continue
		}
		b.text = trimmed
		kept = append(kept, b)
	}

	records := make([]model.SourceRecord, 0, len(kept))
	for _, b := range kept {
		records = append(records, model.SourceRecord{
			Text: b.text,
			Provenance: model.Provenance{
				Institution: snap.Institution,
				URL:         snap.URL,
				Section:     b.section,
				FetchedAt:   snap.FetchedAt,
			},
			Hints: model.RecordHints{
				Level:     "S0",
				Source:    snap.URL,
				BlockType: b.blockType,
			},
		})
	}
	obs.Increment("records_out", len(records))
	return records
}

// cleanedLines splits text into lines, dropping any that match a
// configured boilerplate pattern.
func (s *Segmenter) cleanedLines(text string) []string {
	raw := strings.Split(text, "\n")
	if !s.policy.RemoveBoilerplate {
		return raw
	}
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if s.isBoilerplate(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func (s *Segmenter) isBoilerplate(line string) bool {
	for _, pattern := range s.boilerplate {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func (s *Segmenter) isHeader(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if s.policy.SegmentOnHeaders && markdownHeaderPattern.MatchString(trimmed) {
		return true
	}
	for _, pattern := range s.sectionHeader {
		if pattern.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// segmentBlocks groups cleaned lines into header/list/table/paragraph
// blocks using header, list, and table boundary signals, tracking the
// nearest enclosing header as each block's section.
func (s *Segmenter) segmentBlocks(lines []string) []block {
	var blocks []block
	var section string
	var paragraph []string
	var list []string
	var table []string

	flushParagraph := func() {
		if len(paragraph) == 0 {
			return
		}
		blocks = append(blocks, block{text: strings.Join(paragraph, "\n"), blockType: "paragraph", section: section})
		paragraph = nil
	}
	flushList := func() {
		if len(list) == 0 {
			return
		}
		blocks = append(blocks, block{text: strings.Join(list, "\n"), blockType: "list", section: section})
		list = nil
	}
	flushTable := func() {
		if len(table) == 0 {
			return
		}
		blocks = append(blocks, block{text: strings.Join(table, "\n"), blockType: "table", section: section})
		table = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flushParagraph()
			flushList()
			flushTable()
			continue
		}

		if s.isHeader(line) {
			flushParagraph()
			flushList()
			flushTable()
			section = headerText(trimmed)
			blocks = append(blocks, block{text: trimmed, blockType: "header", section: section})
			continue
		}

		if s.policy.SegmentOnLists && listPrefixPattern.MatchString(line) {
			flushParagraph()
			flushTable()
			list = append(list, trimmed)
			continue
		}

		if s.policy.SegmentOnTables && tableRowPattern.MatchString(line) {
			flushParagraph()
			flushList()
			table = append(table, trimmed)
			continue
		}

		flushList()
		flushTable()
		paragraph = append(paragraph, trimmed)
	}
	flushParagraph()
	flushList()
	flushTable()

	return blocks
}

// headerText strips a leading markdown "#" run from a header line,
// leaving the human-readable section title.
func headerText(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "# "))
}
