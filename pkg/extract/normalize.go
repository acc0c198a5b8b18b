package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
)

// Normalizer applies the label-normalization pipeline: boilerplate
// stripping, institution-prefix removal, and minimal_canonical_form —
// all driven by config.LabelPolicy.
type Normalizer struct {
	policy      config.LabelPolicy
	boilerplate []*regexp.Regexp
}

// NewNormalizer compiles policy's boilerplate patterns once.
func NewNormalizer(policy config.LabelPolicy) *Normalizer {
	n := &Normalizer{policy: policy}
	for _, pattern := range policy.MinimalCanonicalForm.BoilerplatePattern {
		if compiled, err := regexp.Compile(pattern); err == nil {
			n.boilerplate = append(n.boilerplate, compiled)
		}
	}
	return n
}

// StripBoilerplate removes a leading boilerplate phrase (e.g.
// "Department of ", "School of ") from label, returning the stripped
// label and, when a strip occurred, the original label as an alias.
func (n *Normalizer) StripBoilerplate(label string) (stripped string, alias string, changed bool) {
	for _, pattern := range n.boilerplate {
		if loc := pattern.FindStringIndex(label); loc != nil && loc[0] == 0 {
			remainder := strings.TrimSpace(label[loc[1]:])
			if remainder != "" {
				return remainder, label, true
			}
		}
	}
	return label, "", false
}

// StripInstitutionPrefix removes institution when it occurs at the
// head of label (case-insensitive), so level-0 labels do not repeat
// the owning institution's name.
func StripInstitutionPrefix(label, institution string) (stripped string, changed bool) {
	institution = strings.TrimSpace(institution)
	if institution == "" {
		return label, false
	}
	lowerLabel := strings.ToLower(label)
	lowerInst := strings.ToLower(institution)
	if !strings.HasPrefix(lowerLabel, lowerInst) {
		return label, false
	}
	remainder := strings.TrimSpace(label[len(institution):])
	remainder = strings.TrimLeft(remainder, " -:,")
	if remainder == "" {
		return label, false
	}
	return remainder, true
}

// nfdFold transforms s through Unicode NFD decomposition and strips
// combining marks, folding diacritics ("Ecole" <- "École").
var nfdFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldDiacritics(s string) string {
	out, _, err := transform.String(nfdFold, s)
	if err != nil {
		return s
	}
	return out
}

var punctuationStripPattern = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// MinimalCanonicalForm applies case folding, diacritic folding,
// punctuation stripping, and whitespace collapse, then enforces the
// configured length bounds. ok is false when the result falls outside
// [min_length, max_length].
func (n *Normalizer) MinimalCanonicalForm(label string) (canonical string, ok bool) {
	form := n.policy.MinimalCanonicalForm
	s := label
	if form.FoldDiacritics {
		s = foldDiacritics(s)
	}
	if form.Case == "" || form.Case == "lower" {
		s = strings.ToLower(s)
	} else if form.Case == "upper" {
		s = strings.ToUpper(s)
	}
	if form.RemovePunctuation {
		s = punctuationStripPattern.ReplaceAllString(s, " ")
	}
	if form.CollapseWhitespace {
		s = whitespacePattern.ReplaceAllString(s, " ")
	}
	s = strings.TrimSpace(s)

	length := len(s)
	if form.MinLength > 0 && length < form.MinLength {
		return s, false
	}
	if form.MaxLength > 0 && length > form.MaxLength {
		return s, false
	}
	return s, true
}
