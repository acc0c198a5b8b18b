package validation

import (
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

// Snippet is one matched excerpt from a PageSnapshot, bounded to
// snippet_max_length characters around the match and scored for
// authority.
type Snippet struct {
	URL         string  `json:"url"`
	Institution string  `json:"institution"`
	Text        string  `json:"text"`
	Authority   float64 `json:"authority"`
}

// EvidenceIndexer performs substring lookups over a fixed set of
// PageSnapshots, the corpus WebValidator queries for corroborating
// evidence.
type EvidenceIndexer struct {
	snapshots            []model.PageSnapshot
	authoritativeDomains map[string]struct{}
	snippetMaxLength      int
}

// NewEvidenceIndexer builds an indexer over snapshots. authoritative
// names domains that score 1.0 authority instead of the 0.5 default.
func NewEvidenceIndexer(snapshots []model.PageSnapshot, authoritative []string, snippetMaxLength int) *EvidenceIndexer {
	domains := make(map[string]struct{}, len(authoritative))
	for _, d := range authoritative {
		domains[strings.ToLower(d)] = struct{}{}
	}
	if snippetMaxLength <= 0 {
		snippetMaxLength = 200
	}
	return &EvidenceIndexer{snapshots: snapshots, authoritativeDomains: domains, snippetMaxLength: snippetMaxLength}
}

// Query returns every snippet across the indexed snapshots whose text
// contains label (case-insensitive), bounded to snippetMaxLength
// characters centered on the match.
func (idx *EvidenceIndexer) Query(label string) []Snippet {
	needle := strings.ToLower(label)
	var snippets []Snippet

	for _, snap := range idx.snapshots {
		haystack := strings.ToLower(snap.Text)
		pos := strings.Index(haystack, needle)
		if pos < 0 {
			continue
		}
		snippets = append(snippets, Snippet{
			URL:         snap.URL,
			Institution: snap.Institution,
			Text:        bound(snap.Text, pos, len(needle), idx.snippetMaxLength),
			Authority:   idx.authority(snap.URL),
		})
	}
	return snippets
}

func (idx *EvidenceIndexer) authority(url string) float64 {
	lower := strings.ToLower(url)
	for domain := range idx.authoritativeDomains {
		if strings.Contains(lower, domain) {
			return 1.0
		}
	}
	return 0.5
}

// bound extracts up to maxLength characters of text centered on the
// match at [start, start+matchLen).
func bound(text string, start, matchLen, maxLength int) string {
	pad := (maxLength - matchLen) / 2
	if pad < 0 {
		pad = 0
	}
	lo := start - pad
	if lo < 0 {
		lo = 0
	}
	hi := start + matchLen + pad
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}
