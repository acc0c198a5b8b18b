// Package observability implements the cross-cutting fabric every
// pipeline stage reports into: phase-scoped counters, a bounded
// evidence sampler, a quarantine buffer, an operations log, and the
// checksum-stable snapshot/manifest payload assembled from them.
//
// An ObservabilityContext is a collaborator passed explicitly to every
// phase, never a process-wide singleton. Its
// exported methods are safe for concurrent use by bounded parallel
// workers within a single phase.
package observability

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
)

// EvidenceSample is one reservoir entry captured during a phase.
type EvidenceSample struct {
	Sequence int64          `json:"sequence"`
	Phase    string         `json:"phase"`
	Category string         `json:"category"`
	Outcome  string         `json:"outcome"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// QuarantineItem is one quarantined unit.
type QuarantineItem struct {
	Sequence int64          `json:"sequence"`
	Reason   string         `json:"reason"`
	ItemID   string         `json:"item_id"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Operation is one typed operations-log event.
type Operation struct {
	Sequence  int64          `json:"sequence"`
	Phase     string         `json:"phase"`
	Operation string         `json:"operation"`
	Outcome   string         `json:"outcome"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// ObservabilityContext is the per-run collaborator. Construct one with
// New and pass it down to every phase and worker.
type ObservabilityContext struct {
	mu sync.Mutex

	seq int64

	phaseStack []string

	counters map[string]map[string]any // phase -> counter name -> int or map[string]int

	samplingRate float64
	samplingSeed int64
	rngByPhase   map[string]*rand.Rand
	evidenceCap  int
	evidence     map[string][]EvidenceSample

	quarantine []QuarantineItem

	operations []Operation

	performance map[string]map[string]float64

	promptVersions map[string]string
	thresholds     map[string]any
	seeds          map[string]int64
}

// Option configures a new ObservabilityContext.
type Option func(*ObservabilityContext)

// WithEvidenceSamplingRate sets the fraction of evidence candidates kept
// by Sample, in [0,1]. Default 1.0 (keep everything).
func WithEvidenceSamplingRate(rate float64) Option {
	return func(c *ObservabilityContext) { c.samplingRate = rate }
}

// WithDeterministicSamplingSeed fixes the seed used to decide sampling
// inclusion so that repeated runs over identical inputs sample
// identically.
func WithDeterministicSamplingSeed(seed int64) Option {
	return func(c *ObservabilityContext) { c.samplingSeed = seed }
}

// WithEvidenceCap bounds the reservoir size per phase. Default 0 (unbounded).
func WithEvidenceCap(n int) Option {
	return func(c *ObservabilityContext) { c.evidenceCap = n }
}

// New builds a ready-to-use ObservabilityContext.
func New(opts ...Option) *ObservabilityContext {
	c := &ObservabilityContext{
		counters:       map[string]map[string]any{},
		rngByPhase:     map[string]*rand.Rand{},
		evidence:       map[string][]EvidenceSample{},
		performance:    map[string]map[string]float64{},
		promptVersions: map[string]string{},
		thresholds:     map[string]any{},
		seeds:          map[string]int64{},
		samplingRate:   1.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ObservabilityContext) nextSequence() int64 {
	c.seq++
	return c.seq
}

// currentPhase returns the top of the phase stack, or "" if empty.
func (c *ObservabilityContext) currentPhase() string {
	if len(c.phaseStack) == 0 {
		return ""
	}
	return c.phaseStack[len(c.phaseStack)-1]
}

// PushPhase enters a named phase scope.
func (c *ObservabilityContext) PushPhase(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phaseStack = append(c.phaseStack, name)
}

// PopPhase exits the current phase scope.
func (c *ObservabilityContext) PopPhase() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.phaseStack) == 0 {
		return
	}
	c.phaseStack = c.phaseStack[:len(c.phaseStack)-1]
}

// PhaseScope is a closer returned by Phase; callers must defer Close.
type PhaseScope struct {
	ctx *ObservabilityContext
}

// Close pops the phase regardless of how the caller's block exited,
// including panics.
func (s PhaseScope) Close() {
	s.ctx.PopPhase()
}

// Phase enters name and returns a scope whose Close exits it. Typical
// use: `defer obs.Phase("phase1_level0").Close()`.
func (c *ObservabilityContext) Phase(name string) PhaseScope {
	c.PushPhase(name)
	return PhaseScope{ctx: c}
}

// Increment adds value (default semantics: callers pass 1 for a simple
// counter bump) to the named counter in the current phase.
func (c *ObservabilityContext) Increment(name string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	phase := c.currentPhase()
	bucket, ok := c.counters[phase]
	if !ok {
		bucket = map[string]any{}
		c.counters[phase] = bucket
	}
	existing, ok := bucket[name]
	if !ok {
		bucket[name] = value
		return
	}
	if n, ok := existing.(int); ok {
		bucket[name] = n + value
		return
	}
	bucket[name] = value
}

// IncrementLabel bumps a label within a named label->count map counter,
// e.g. Increment("dropped_by_reason", ...) partitioned by reason.
func (c *ObservabilityContext) IncrementLabel(name, label string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	phase := c.currentPhase()
	bucket, ok := c.counters[phase]
	if !ok {
		bucket = map[string]any{}
		c.counters[phase] = bucket
	}
	existing, ok := bucket[name]
	var labels map[string]int
	if ok {
		labels, ok = existing.(map[string]int)
	}
	if !ok || labels == nil {
		labels = map[string]int{}
	}
	labels[label] += value
	bucket[name] = labels
}

// Sample records an evidence sample, subject to the configured sampling
// rate and reservoir cap. Sampling decisions are deterministic given a
// fixed seed and call order.
func (c *ObservabilityContext) Sample(category, outcome string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	phase := c.currentPhase()
	if c.samplingRate < 1.0 {
		rng, ok := c.rngByPhase[phase]
		if !ok {
			rng = rand.New(rand.NewSource(c.samplingSeed))
			c.rngByPhase[phase] = rng
		}
		if rng.Float64() >= c.samplingRate {
			return
		}
	}
	seq := c.nextSequence()
	sample := EvidenceSample{Sequence: seq, Phase: phase, Category: category, Outcome: outcome, Payload: payload}
	bucket := c.evidence[phase]
	bucket = append(bucket, sample)
	if c.evidenceCap > 0 && len(bucket) > c.evidenceCap {
		bucket = bucket[len(bucket)-c.evidenceCap:]
	}
	c.evidence[phase] = bucket
}

// Quarantine records a quarantined unit with its reason.
func (c *ObservabilityContext) Quarantine(reason, itemID string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.nextSequence()
	c.quarantine = append(c.quarantine, QuarantineItem{Sequence: seq, Reason: reason, ItemID: itemID, Payload: payload})
}

// LogOperation records a typed operations-log event.
func (c *ObservabilityContext) LogOperation(operation, outcome string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.nextSequence()
	phase := c.currentPhase()
	c.operations = append(c.operations, Operation{Sequence: seq, Phase: phase, Operation: operation, Outcome: outcome, Payload: payload})
}

// RecordPerformance sets a free-form numeric metric for the current phase.
func (c *ObservabilityContext) RecordPerformance(metric string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	phase := c.currentPhase()
	bucket, ok := c.performance[phase]
	if !ok {
		bucket = map[string]float64{}
		c.performance[phase] = bucket
	}
	bucket[metric] = value
}

// RegisterPromptVersion records the active version of a prompt key.
func (c *ObservabilityContext) RegisterPromptVersion(key, version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promptVersions[key] = version
}

// RegisterThreshold records a dotted threshold path and its value.
func (c *ObservabilityContext) RegisterThreshold(path string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds[path] = value
}

// RegisterSeed records a named seed value.
func (c *ObservabilityContext) RegisterSeed(name string, value int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seeds[name] = value
}

// Snapshot is an immutable dump of the observability state at one instant.
type Snapshot struct {
	Counters       map[string]map[string]any    `json:"counters"`
	Evidence       map[string][]EvidenceSample  `json:"evidence"`
	Quarantine     []QuarantineItem             `json:"quarantine"`
	Operations     []Operation                  `json:"operations"`
	Performance    map[string]map[string]float64 `json:"performance"`
	PromptVersions map[string]string            `json:"prompt_versions"`
	Thresholds     map[string]any               `json:"thresholds"`
	Seeds          map[string]int64             `json:"seeds"`
	Checksum       string                       `json:"checksum"`
	CapturedAt     string                       `json:"captured_at"`
}

// deepCopyCounters produces an independent copy so a later mutation of
// the live context cannot retroactively change a taken snapshot.
func deepCopyCounters(in map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(in))
	for phase, bucket := range in {
		b := make(map[string]any, len(bucket))
		for k, v := range bucket {
			if labels, ok := v.(map[string]int); ok {
				cp := make(map[string]int, len(labels))
				for lk, lv := range labels {
					cp[lk] = lv
				}
				b[k] = cp
				continue
			}
			b[k] = v
		}
		out[phase] = b
	}
	return out
}

// Snapshot captures the current state. capturedAt should be supplied by
// the caller (observability itself never calls time.Now so that
// checksum computation stays deterministic in tests); passing the zero
// value omits the field from the checksum input.
func (c *ObservabilityContext) Snapshot(capturedAt time.Time) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Counters:       deepCopyCounters(c.counters),
		Evidence:       map[string][]EvidenceSample{},
		Quarantine:     append([]QuarantineItem(nil), c.quarantine...),
		Operations:     append([]Operation(nil), c.operations...),
		Performance:    map[string]map[string]float64{},
		PromptVersions: map[string]string{},
		Thresholds:     map[string]any{},
		Seeds:          map[string]int64{},
	}
	for phase, samples := range c.evidence {
		snap.Evidence[phase] = append([]EvidenceSample(nil), samples...)
	}
	for phase, metrics := range c.performance {
		cp := make(map[string]float64, len(metrics))
		for k, v := range metrics {
			cp[k] = v
		}
		snap.Performance[phase] = cp
	}
	for k, v := range c.promptVersions {
		snap.PromptVersions[k] = v
	}
	for k, v := range c.thresholds {
		snap.Thresholds[k] = v
	}
	for k, v := range c.seeds {
		snap.Seeds[k] = v
	}
	if !capturedAt.IsZero() {
		snap.CapturedAt = capturedAt.UTC().Format(time.RFC3339Nano)
	}
	snap.Checksum = checksumOf(snap)
	return snap
}

// checksumOf derives a stable checksum from the canonical JSON of the
// checksum-relevant fields (captured_at is excluded so re-running a
// snapshot at a different wall-clock instant does not change it).
func checksumOf(snap Snapshot) string {
	canonical := struct {
		Counters       map[string]map[string]any     `json:"counters"`
		Evidence       map[string][]EvidenceSample    `json:"evidence"`
		Quarantine     []QuarantineItem               `json:"quarantine"`
		Operations     []Operation                    `json:"operations"`
		Performance    map[string]map[string]float64  `json:"performance"`
		PromptVersions map[string]string               `json:"prompt_versions"`
		Thresholds     map[string]any                  `json:"thresholds"`
		Seeds          map[string]int64                `json:"seeds"`
	}{
		Counters:       snap.Counters,
		Evidence:       snap.Evidence,
		Quarantine:     snap.Quarantine,
		Operations:     snap.Operations,
		Performance:    snap.Performance,
		PromptVersions: snap.PromptVersions,
		Thresholds:     snap.Thresholds,
		Seeds:          snap.Seeds,
	}
	data, err := canonicalJSON(canonical)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// canonicalJSON marshals v with map keys sorted (Go's encoding/json
// already sorts map[string]X keys) after re-marshaling through an
// ordered representation so nested slices of structs serialize
// deterministically regardless of map iteration order upstream.
func canonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// StableSorted returns the keys of m in sorted order, for callers that
// need deterministic iteration over a map.
func StableSorted[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
