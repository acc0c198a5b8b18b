package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// ValidateAll runs struct-tag validation followed by the cross-field
// business rules the policy model enforces (e.g. max_chars >=
// min_chars, default_profile present in profiles). Validation fails
// on the first error encountered.
func ValidateAll(s *Settings) error {
	normalize(s)

	if err := structValidator.Struct(s); err != nil {
		return describeValidationError(err)
	}

	if err := validateBusinessRules(s); err != nil {
		return err
	}

	return nil
}

func describeValidationError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError(fe.Namespace(), fmt.Errorf("%w: %s", ErrInvalidValue, fe.Tag()))
	}
	return err
}

func validateBusinessRules(s *Settings) error {
	if !s.Environment.Valid() {
		return NewValidationError("environment", fmt.Errorf("%w: unrecognized environment %q", ErrInvalidValue, s.Environment))
	}

	p := s.Policies
	if p == nil {
		return NewValidationError("policies", ErrMissingRequiredField)
	}

	re := p.RawExtraction
	if re.MaxChars > 0 && re.MaxChars < re.MinChars {
		return NewValidationError("policies.raw_extraction.max_chars",
			fmt.Errorf("%w: max_chars (%d) must be >= min_chars (%d)", ErrInvalidValue, re.MaxChars, re.MinChars))
	}

	llm := p.LLM
	if llm.DefaultProfile != "" {
		if _, ok := llm.Profiles[llm.DefaultProfile]; !ok {
			return NewValidationError("policies.llm.default_profile",
				fmt.Errorf("%w: default_profile %q missing from profiles", ErrInvalidValue, llm.DefaultProfile))
		}
	}

	for level, limit := range p.SingleToken.MaxTokensPerLevel {
		if limit <= 0 {
			return NewValidationError("policies.single_token.max_tokens_per_level",
				fmt.Errorf("%w: level %d limit must be positive, got %d", ErrInvalidValue, level, limit))
		}
	}

	agg := p.Validation.Aggregation
	if agg.TieBreakMinStrength != nil && *agg.TieBreakMinStrength < 0 {
		return NewValidationError("policies.validation.aggregation.tie_break_min_strength",
			fmt.Errorf("%w: must be non-negative", ErrInvalidValue))
	}

	switch p.Hierarchy.OrphanStrategy {
	case "", "quarantine", "attach_placeholder":
	default:
		return NewValidationError("policies.hierarchy.orphan_strategy",
			fmt.Errorf("%w: unrecognized strategy %q", ErrInvalidValue, p.Hierarchy.OrphanStrategy))
	}

	return nil
}

// normalize applies in-place field transforms at parse time:
// lower-casing and trimming vocabulary lists so policy comparisons
// are consistent regardless of how an operator authored the YAML.
func normalize(s *Settings) {
	if s == nil || s.Policies == nil {
		return
	}
	p := s.Policies

	p.SingleToken.Allowlist = lowerTrimAll(p.SingleToken.Allowlist)
	p.SingleToken.VenueNames = lowerTrimAll(p.SingleToken.VenueNames)
	p.SingleToken.ForbiddenPunctuation = trimAll(p.SingleToken.ForbiddenPunctuation)

	p.Validation.Rules.ForbiddenPatterns = trimAll(p.Validation.Rules.ForbiddenPatterns)
	p.Validation.Rules.VenuePatterns = trimAll(p.Validation.Rules.VenuePatterns)
	p.Validation.Web.AuthoritativeDomains = lowerTrimAll(p.Validation.Web.AuthoritativeDomains)

	normalized := make(map[int][]string, len(p.Validation.Rules.RequiredVocabularies))
	for level, terms := range p.Validation.Rules.RequiredVocabularies {
		normalized[level] = lowerTrimAll(terms)
	}
	p.Validation.Rules.RequiredVocabularies = normalized

	p.RawExtraction.BoilerplatePatterns = trimAll(p.RawExtraction.BoilerplatePatterns)
	p.RawExtraction.SectionHeaderPatterns = trimAll(p.RawExtraction.SectionHeaderPatterns)

	var delimiters []string
	for _, d := range p.FrequencyFiltering.NearDuplicate.PrefixDelimiters {
		if trimmed := strings.TrimSpace(d); trimmed != "" {
			delimiters = append(delimiters, trimmed)
		}
	}
	p.FrequencyFiltering.NearDuplicate.PrefixDelimiters = delimiters
}

func lowerTrimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
