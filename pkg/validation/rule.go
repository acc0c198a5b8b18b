package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
)

type violation struct {
	code string
	hard bool
}

// RuleValidator applies deterministic pattern and vocabulary checks to
// a concept's canonical label.
type RuleValidator struct {
	settings  config.RuleValidationSettings
	forbidden []*regexp.Regexp
	venues    []*regexp.Regexp
}

// NewRuleValidator compiles settings' pattern lists once.
func NewRuleValidator(settings config.RuleValidationSettings) *RuleValidator {
	return &RuleValidator{
		settings:  settings,
		forbidden: compileAll(settings.ForbiddenPatterns),
		venues:    compileAll(settings.VenuePatterns),
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// Validate runs the rule stack against concept and returns its finding.
func (v *RuleValidator) Validate(concept model.Concept) model.ValidationFinding {
	label := strings.ToLower(concept.CanonicalLabel)
	var violations []violation

	for _, re := range v.forbidden {
		if re.MatchString(label) {
			violations = append(violations, violation{code: "forbidden_pattern:" + re.String(), hard: true})
		}
	}

	if required, ok := v.settings.RequiredVocabularies[int(concept.Level)]; ok && len(required) > 0 {
		if !containsAny(label, concept.Aliases, required) {
			violations = append(violations, violation{code: "missing_required_vocabulary", hard: true})
		}
	}

	venueHard := v.settings.VenueDetectionHard
	for _, re := range v.venues {
		if re.MatchString(label) {
			violations = append(violations, violation{code: "venue_pattern", hard: venueHard})
		}
	}

	if v.settings.StructuralChecksEnabled {
		if label == "" {
			violations = append(violations, violation{code: "empty_label", hard: true})
		}
	}

	hardFailed := false
	for _, viol := range violations {
		if viol.hard {
			hardFailed = true
			break
		}
	}

	return model.ValidationFinding{
		ConceptID: concept.ID,
		Mode:      model.ValidationModeRule,
		Passed:    !hardFailed,
		Detail:    summarize(violations),
	}
}

func containsAny(label string, aliases, required []string) bool {
	haystack := label
	for _, alias := range aliases {
		haystack += " " + strings.ToLower(alias)
	}
	for _, term := range required {
		if strings.Contains(haystack, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

// summarize renders the deterministic rule-validation summary string:
// "N hard[, M soft] violations; most significant: <code>", or
// "Rule checks succeeded" when violations is empty. The most
// significant violation is the first hard one, or the first violation
// at all when none are hard.
func summarize(violations []violation) string {
	if len(violations) == 0 {
		return "Rule checks succeeded"
	}

	hard, soft := 0, 0
	mostSignificant := violations[0].code
	sawHard := false
	for _, v := range violations {
		if v.hard {
			hard++
			if !sawHard {
				mostSignificant = v.code
				sawHard = true
			}
		} else {
			soft++
		}
	}

	summary := strconv.Itoa(hard) + " hard"
	if soft > 0 {
		summary += ", " + strconv.Itoa(soft) + " soft"
	}
	return fmt.Sprintf("%s violations; most significant: %s", summary, mostSignificant)
}
