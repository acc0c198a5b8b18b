package frequency

import (
	"regexp"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
)

var trailingDigitsPattern = regexp.MustCompile(`\d+$`)

// CanonicalizeFingerprint is the near-duplicate record collapsing
// rule, kept as a pure function of its inputs: truncate at the first
// configured prefix delimiter (provided the resulting prefix meets
// min_prefix_length), then optionally strip a trailing numeric suffix.
func CanonicalizeFingerprint(fp string, policy config.NearDuplicateDedupPolicy) string {
	if !policy.Enabled {
		return fp
	}

	prefix := fp
	for _, delim := range policy.PrefixDelimiters {
		if delim == "" {
			continue
		}
		if idx := strings.Index(fp, delim); idx >= 0 {
			candidate := fp[:idx]
			if len(candidate) >= policy.MinPrefixLength {
				prefix = candidate
			}
			break
		}
	}

	if policy.StripNumericSufx {
		prefix = trailingDigitsPattern.ReplaceAllString(prefix, "")
	}

	return prefix
}
