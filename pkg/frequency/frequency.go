package frequency

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

// Filter runs S2 over one level's S1 envelopes: grouping, institution
// resolution, near-duplicate fingerprint collapsing, and threshold
// gating.
type Filter struct {
	resolver   *InstitutionResolver
	nearDup    config.NearDuplicateDedupPolicy
	thresholds config.LevelThresholds
}

// NewFilter builds a Filter bound to policy.
func NewFilter(resolver *InstitutionResolver, nearDup config.NearDuplicateDedupPolicy, thresholds config.LevelThresholds) *Filter {
	return &Filter{resolver: resolver, nearDup: nearDup, thresholds: thresholds}
}

type group struct {
	candidate    model.Candidate
	institutions map[string]struct{}
	fingerprints map[string]struct{}
	count        int
}

// Run groups envelopes by (level, normalized, parents), resolves
// institutions and collapses near-duplicate fingerprints, then gates
// each resulting group against level's threshold. Returns kept and
// dropped decisions, each sorted by (normalized, parents) for
// deterministic emission.
func (f *Filter) Run(level model.Level, envelopes []model.CandidateEnvelope, obs *observability.ObservabilityContext) (kept, dropped []model.FrequencyDecision) {
	groups := map[string]*group{}
	var order []string

	for _, env := range envelopes {
		key := groupKey(env.Candidate.Normalized, env.Candidate.Parents)
		g, ok := groups[key]
		if !ok {
			g = &group{
				candidate:    env.Candidate,
				institutions: map[string]struct{}{},
				fingerprints: map[string]struct{}{},
			}
			groups[key] = g
			order = append(order, key)
		}
		g.count += env.Candidate.Support.Count

		for _, inst := range env.Institutions {
			g.institutions[f.resolver.Resolve(inst)] = struct{}{}
		}
		for _, fp := range env.RecordFingerprints {
			g.fingerprints[CanonicalizeFingerprint(fp, f.nearDup)] = struct{}{}
		}
	}

	threshold, _ := f.thresholds.ForLevel(int(level))

	for _, key := range order {
		g := groups[key]
		institutions := setToSortedSlice(g.institutions)
		fingerprints := setToSortedSlice(g.fingerprints)

		candidate := g.candidate
		candidate.Support = model.SupportStats{
			Records:      len(fingerprints),
			Institutions: len(institutions),
			Count:        g.count,
		}

		rationale := model.NewRationale()
		passed := candidate.Support.Institutions >= threshold.MinInstitutions && candidate.Support.Records >= threshold.MinSrcCount
		rationale.SetGate("frequency", passed)
		if passed {
			rationale.AddReason("meets frequency threshold")
		} else {
			rationale.AddReason(dropReason(candidate.Support, threshold))
		}

		decision := model.FrequencyDecision{
			Candidate:          candidate,
			Institutions:       institutions,
			RecordFingerprints: fingerprints,
			Weight:             float64(candidate.Support.Count),
			Passed:             passed,
			Rationale:          rationale,
		}

		if passed {
			obs.Increment("groups_kept", 1)
			kept = append(kept, decision)
		} else {
			obs.Increment("groups_dropped", 1)
			dropped = append(dropped, decision)
		}
	}

	sortDecisions(kept)
	sortDecisions(dropped)
	return kept, dropped
}

func dropReason(support model.SupportStats, threshold config.LevelThreshold) string {
	return "observed institutions=" + strconv.Itoa(support.Institutions) + " (required " + strconv.Itoa(threshold.MinInstitutions) +
		"), records=" + strconv.Itoa(support.Records) + " (required " + strconv.Itoa(threshold.MinSrcCount) + ")"
}

func groupKey(normalized string, parents []string) string {
	sorted := append([]string(nil), parents...)
	sort.Strings(sorted)
	return normalized + "\x1f" + strings.Join(sorted, "|")
}

func sortDecisions(decisions []model.FrequencyDecision) {
	sort.Slice(decisions, func(i, j int) bool {
		a, b := decisions[i].Candidate, decisions[j].Candidate
		if a.Normalized != b.Normalized {
			return a.Normalized < b.Normalized
		}
		return strings.Join(a.Parents, ",") < strings.Join(b.Parents, ",")
	})
}

func setToSortedSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

