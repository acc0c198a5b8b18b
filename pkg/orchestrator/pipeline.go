package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vkhangpham/taxonomy-generation/pkg/checkpoint"
	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/consolidate"
	"github.com/vkhangpham/taxonomy-generation/pkg/dedup"
	"github.com/vkhangpham/taxonomy-generation/pkg/disambiguate"
	"github.com/vkhangpham/taxonomy-generation/pkg/extract"
	"github.com/vkhangpham/taxonomy-generation/pkg/frequency"
	"github.com/vkhangpham/taxonomy-generation/pkg/hierarchy"
	"github.com/vkhangpham/taxonomy-generation/pkg/jsonl"
	"github.com/vkhangpham/taxonomy-generation/pkg/llmprovider"
	"github.com/vkhangpham/taxonomy-generation/pkg/model"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
	"github.com/vkhangpham/taxonomy-generation/pkg/pipelineerr"
	"github.com/vkhangpham/taxonomy-generation/pkg/promptregistry"
	"github.com/vkhangpham/taxonomy-generation/pkg/segment"
	"github.com/vkhangpham/taxonomy-generation/pkg/validation"
	"github.com/vkhangpham/taxonomy-generation/pkg/verify"
)

// defaultConcurrency bounds the worker pools the pipeline hands its
// per-record stages (segmentation, token verification). The pipeline
// has no dedicated concurrency policy field; this constant plays that
// role until one is warranted.
const defaultConcurrency = 8

// maxPostProcessorPasses bounds the validation/deduplication/
// disambiguation re-run loop triggered when a disambiguation pass
// splits a concept: the phase3 group is re-applied to the enlarged
// concept set until a pass produces no further splits, or this many
// passes have run.
const maxPostProcessorPasses = 3

// Pipeline wires every built stage package into the fixed phase
// sequence and owns the single Runner and Registry shared by every
// LLM-calling stage.
type Pipeline struct {
	settings    *config.Settings
	runID       string
	runDir      string
	checkpoints *checkpoint.Manager
	obs         *observability.ObservabilityContext
	registry    *promptregistry.Registry
	runner      *llmprovider.Runner
	segmenter   *segment.Segmenter
	vocab       extract.AcronymVocabulary
	workers     *WorkerPool

	parentIndex *extract.ParentIndex
}

// NewPipeline builds a Pipeline for runID (a fresh uuid when empty),
// loading the prompt registry and constructing the Anthropic-backed
// Runner every LLM-calling stage shares.
func NewPipeline(settings *config.Settings, runID string) (*Pipeline, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	runDir := settings.RunDir(runID)

	cp, err := checkpoint.New(runDir)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	var obsOpts []observability.Option
	if seed := settings.RandomSeed; seed != 0 {
		obsOpts = append(obsOpts, observability.WithDeterministicSamplingSeed(seed))
	}
	if rate := settings.Policies.Validation.Evidence.EvidenceSamplingRate; rate > 0 {
		obsOpts = append(obsOpts, observability.WithEvidenceSamplingRate(rate))
	}
	if cap := settings.Policies.Validation.Evidence.MaxSnippetsPerConcept; cap > 0 {
		obsOpts = append(obsOpts, observability.WithEvidenceCap(cap))
	}
	obs := observability.New(obsOpts...)
	obs.RegisterSeed("random_seed", settings.RandomSeed)
	obs.RegisterSeed("llm_random_seed", int64(settings.Policies.LLM.RandomSeed))

	llmPolicy := settings.Policies.LLM
	registry, err := promptregistry.Load(llmPolicy.Registry.File, llmPolicy.Registry.TemplatesRoot, llmPolicy.Registry.SchemaRoot)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load prompt registry: %w", err)
	}

	profile, ok := llmPolicy.Profiles[llmPolicy.DefaultProfile]
	if !ok {
		return nil, fmt.Errorf("%w: default LLM profile %q is not configured", pipelineerr.ErrConfigurationError, llmPolicy.DefaultProfile)
	}

	provider := llmprovider.NewAnthropicProvider(profile.Model, "")
	runner := llmprovider.NewRunner(provider, registry, llmPolicy, obs)

	return &Pipeline{
		settings:    settings,
		runID:       runID,
		runDir:      runDir,
		checkpoints: cp,
		obs:         obs,
		registry:    registry,
		runner:      runner,
		segmenter:   segment.New(settings.Policies.RawExtraction),
		vocab:       extract.DefaultAcronymVocabulary(),
		workers:     NewWorkerPool(defaultConcurrency),
	}, nil
}

// RunID returns the run identifier this pipeline writes artifacts under.
func (p *Pipeline) RunID() string { return p.runID }

// RunDir returns <output_dir>/runs/<run_id>.
func (p *Pipeline) RunDir() string { return p.runDir }

// Observability returns the shared observability context.
func (p *Pipeline) Observability() *observability.ObservabilityContext { return p.obs }

// Checkpoints returns the checkpoint manager backing this run.
func (p *Pipeline) Checkpoints() *checkpoint.Manager { return p.checkpoints }

// phaseSequence is the fixed phase order from the system overview.
var phaseSequence = []string{
	"phase1_level0", "phase1_level1", "phase1_level2", "phase1_level3",
	"phase2_consolidation",
	"phase3_validation", "phase3_deduplication", "phase3_disambiguation",
	"phase4_finalize",
}

// Phases builds the ordered PhaseSpec list this pipeline drives. Every
// phase is RaiseOnError: record-level and retryable failures are
// already absorbed by the stage packages themselves (quarantine,
// retry-with-backoff); anything reaching the phase boundary is fatal
// per the error taxonomy in the error-handling design.
func (p *Pipeline) Phases() []PhaseSpec {
	specs := make([]PhaseSpec, 0, len(phaseSequence))
	for _, level := range []model.Level{model.Level0, model.Level1, model.Level2, model.Level3} {
		level := level
		specs = append(specs, PhaseSpec{
			Name:         fmt.Sprintf("phase1_level%d", level),
			Fn:           func(ctx context.Context) (map[string]any, error) { return p.runLevelPhase(ctx, level) },
			RaiseOnError: true,
		})
	}
	specs = append(specs,
		PhaseSpec{Name: "phase2_consolidation", Fn: p.runConsolidationPhase, RaiseOnError: true},
		PhaseSpec{Name: "phase3_validation", Fn: p.runValidationPhase, RaiseOnError: true},
		PhaseSpec{Name: "phase3_deduplication", Fn: p.runDeduplicationPhase, RaiseOnError: true},
		PhaseSpec{Name: "phase3_disambiguation", Fn: p.runDisambiguationPhase, RaiseOnError: true},
		PhaseSpec{Name: "phase4_finalize", Fn: p.runFinalizePhase, RaiseOnError: true},
	)
	return specs
}

// Run resolves resumeFrom against the fixed phase sequence and drives
// every phase from that point forward.
func (p *Pipeline) Run(ctx context.Context, resumeFrom string) error {
	specs := p.Phases()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	start, err := checkpoint.ResolveResumePhase(names, resumeFrom)
	if err != nil {
		return err
	}
	manager := NewManager(p.checkpoints, p.obs, specs)
	return manager.Run(ctx, start)
}

func (p *Pipeline) path(parts ...string) string {
	return filepath.Join(append([]string{p.runDir}, parts...)...)
}

func (p *Pipeline) snapshotPath(level model.Level) string {
	return filepath.Join(p.settings.Paths.Data, "snapshots", fmt.Sprintf("level%d.jsonl", level))
}

// loadAllSnapshots reads every level's external snapshot file, used by
// validation's web evidence indexer, which looks for corroborating
// evidence across the whole corpus rather than one level at a time.
func (p *Pipeline) loadAllSnapshots() ([]model.PageSnapshot, error) {
	var all []model.PageSnapshot
	for _, level := range []model.Level{model.Level0, model.Level1, model.Level2, model.Level3} {
		snaps, err := jsonl.ReadAll[model.PageSnapshot](p.snapshotPath(level), nil)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: load snapshots for level %d: %w", level, err)
		}
		all = append(all, snaps...)
	}
	return all, nil
}

// runLevelPhase runs S0->S1->S2->S3 for level, the sub-pipeline every
// phase1_level{N} phase performs.
func (p *Pipeline) runLevelPhase(ctx context.Context, level model.Level) (map[string]any, error) {
	snapshots, err := jsonl.ReadAll[model.PageSnapshot](p.snapshotPath(level), nil)
	if err != nil {
		return nil, fmt.Errorf("S0: %w", err)
	}

	// S0: segmentation is independent per snapshot, so it is bounded
	// parallel; results are collected into a pre-sized slice so the
	// accumulated source-record stream still reflects document order
	// regardless of completion order.
	perSnapshot := make([][]model.SourceRecord, len(snapshots))
	if err := p.workers.Run(ctx, len(snapshots), func(ctx context.Context, i int) error {
		perSnapshot[i] = p.segmenter.Segment(snapshots[i], p.obs)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("S0: %w", err)
	}
	var levelRecords []model.SourceRecord
	for _, records := range perSnapshot {
		levelRecords = append(levelRecords, records...)
	}

	sourceRecordsPath := p.path("S0", "source_records.jsonl")
	existingRecords, err := jsonl.ReadAll[model.SourceRecord](sourceRecordsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("S0: %w", err)
	}
	if err := jsonl.WriteAll(sourceRecordsPath, append(existingRecords, levelRecords...)); err != nil {
		return nil, fmt.Errorf("S0: %w", err)
	}
	p.checkpoints.RegisterArtifact("source_records", sourceRecordsPath)

	// S1: extraction shares one Aggregator across the level's records,
	// which is not safe for concurrent mutation, so extraction runs
	// sequentially; the bounded worker pool is instead exercised by S0
	// above and S3 below, both of which own no such shared state.
	extractor := extract.NewExtractor(p.runner, p.settings.Policies.LabelPolicy, p.vocab)
	aggregator := extract.NewAggregator()
	for _, record := range levelRecords {
		_ = extractor.ExtractRecord(ctx, record, level, p.parentIndex, aggregator, p.obs)
	}
	envelopes := aggregator.Envelopes()
	// A missing parent anchor here is expected and resolved downstream by
	// the hierarchy assembler's orphan_strategy, not a gate; this only
	// keeps the invariant visible in observability as it is produced.
	for _, env := range envelopes {
		if err := env.Candidate.Validate(); err != nil {
			p.obs.Increment("candidate_invariant_violation", 1)
		}
	}
	s1Path := p.path("S1", fmt.Sprintf("level%d_candidates.jsonl", level))
	if err := jsonl.WriteAll(s1Path, envelopes); err != nil {
		return nil, fmt.Errorf("S1: %w", err)
	}
	p.checkpoints.RegisterArtifact("s1_candidates", s1Path)

	// S2
	resolver := frequency.NewInstitutionResolver(p.settings.Policies.InstitutionPolicy, p.settings.Policies.FrequencyFiltering.UnknownInstitutionPlaceholder)
	filter := frequency.NewFilter(resolver, p.settings.Policies.FrequencyFiltering.NearDuplicate, p.settings.Policies.LevelThresholds)
	kept, dropped := filter.Run(level, envelopes, p.obs)
	keptPath := p.path("S2", fmt.Sprintf("level%d_kept.jsonl", level))
	droppedPath := p.path("S2", fmt.Sprintf("level%d_dropped.jsonl", level))
	if err := jsonl.WriteAll(keptPath, kept); err != nil {
		return nil, fmt.Errorf("S2: %w", err)
	}
	if err := jsonl.WriteAll(droppedPath, dropped); err != nil {
		return nil, fmt.Errorf("S2: %w", err)
	}
	p.checkpoints.RegisterArtifact("s2_kept", keptPath)
	p.checkpoints.RegisterArtifact("s2_dropped", droppedPath)

	// S3
	processor := verify.NewProcessor(p.settings.Policies.SingleToken, p.runner)
	decisions := make([]model.TokenVerificationDecision, len(kept))
	if err := p.workers.Run(ctx, len(kept), func(ctx context.Context, i int) error {
		decisions[i] = processor.Verify(ctx, kept[i].Candidate, p.obs)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("S3: %w", err)
	}

	var verified, failed []model.TokenVerificationDecision
	nextIndex := extract.NewParentIndex(level)
	for _, d := range decisions {
		if d.Passed {
			verified = append(verified, d)
			nextIndex.Add(d.Candidate.Normalized, d.Candidate.Aliases)
		} else {
			failed = append(failed, d)
		}
	}
	p.parentIndex = nextIndex

	verifiedPath := p.path("S3", fmt.Sprintf("level%d_verified.jsonl", level))
	failedPath := p.path("S3", fmt.Sprintf("level%d_failed.jsonl", level))
	if err := jsonl.WriteAll(verifiedPath, verified); err != nil {
		return nil, fmt.Errorf("S3: %w", err)
	}
	if err := jsonl.WriteAll(failedPath, failed); err != nil {
		return nil, fmt.Errorf("S3: %w", err)
	}
	p.checkpoints.RegisterArtifact("s3_verified", verifiedPath)
	p.checkpoints.RegisterArtifact("s3_failed", failedPath)

	return map[string]any{
		"snapshots":  len(snapshots),
		"records":    len(levelRecords),
		"candidates": len(envelopes),
		"kept":       len(kept),
		"dropped":    len(dropped),
		"verified":   len(verified),
		"failed":     len(failed),
	}, nil
}

// runConsolidationPhase reads every level's S3 verified decisions and
// seeds Concepts in ascending level order, so each level's parent
// anchors resolve against ids already minted for the level below it.
func (p *Pipeline) runConsolidationPhase(ctx context.Context) (map[string]any, error) {
	consolidator := consolidate.New()
	var allConcepts []model.Concept
	for _, level := range []model.Level{model.Level0, model.Level1, model.Level2, model.Level3} {
		decisions, err := jsonl.ReadAll[model.TokenVerificationDecision](p.path("S3", fmt.Sprintf("level%d_verified.jsonl", level)), nil)
		if err != nil {
			return nil, err
		}
		allConcepts = append(allConcepts, consolidator.Seed(level, decisions, p.obs)...)
	}

	// assembled=false: a level>0 concept with zero parents is still a
	// legitimate pre-assembly state here, left for the hierarchy
	// assembler to quarantine or attach a placeholder for.
	for _, c := range allConcepts {
		if err := c.Validate(false); err != nil {
			p.obs.Increment("concept_invariant_violation", 1)
		}
	}

	conceptsPath := p.path("consolidation", "concepts.jsonl")
	if err := jsonl.WriteAll(conceptsPath, allConcepts); err != nil {
		return nil, err
	}
	p.checkpoints.RegisterArtifact("concepts_seed", conceptsPath)

	return map[string]any{"concepts": len(allConcepts)}, nil
}

// validateConcepts runs the rule/web/LLM aggregator over concepts and
// returns only those that passed. It is shared by the main
// phase3_validation phase and by the bounded post-processor re-run
// loop inside phase3_disambiguation.
func (p *Pipeline) validateConcepts(ctx context.Context, concepts []model.Concept) ([]model.Concept, map[string]any, error) {
	snapshots, err := p.loadAllSnapshots()
	if err != nil {
		return nil, nil, err
	}

	vp := p.settings.Policies.Validation
	indexer := validation.NewEvidenceIndexer(snapshots, vp.Web.AuthoritativeDomains, vp.Web.SnippetMaxLength)
	aggregator := validation.NewAggregator(
		vp.Aggregation,
		validation.NewRuleValidator(vp.Rules),
		validation.NewWebValidator(vp.Web, indexer),
		validation.NewLLMValidator(vp.LLM, p.runner),
	)

	var kept []model.Concept
	for _, concept := range concepts {
		validated := aggregator.Run(ctx, concept, vp.Threshold, p.obs)
		if validated.ValidationPassed != nil && *validated.ValidationPassed {
			kept = append(kept, validated)
		} else {
			p.obs.Quarantine("validation_failed", validated.ID, map[string]any{"strength": validated.ValidationMetadata.Strength})
		}
	}

	return kept, map[string]any{"validated": len(concepts), "passed": len(kept)}, nil
}

func (p *Pipeline) runValidationPhase(ctx context.Context) (map[string]any, error) {
	concepts, err := jsonl.ReadAll[model.Concept](p.path("consolidation", "concepts.jsonl"), nil)
	if err != nil {
		return nil, err
	}

	kept, stats, err := p.validateConcepts(ctx, concepts)
	if err != nil {
		return nil, err
	}

	outPath := p.path("validation", "concepts.jsonl")
	if err := jsonl.WriteAll(outPath, kept); err != nil {
		return nil, err
	}
	p.checkpoints.RegisterArtifact("validated_concepts", outPath)
	return stats, nil
}

// dedupeConcepts applies the configured deduplication thresholds per
// level band (0-1 and 2-3) and returns the survivors plus every merge
// applied. Shared by phase3_deduplication and the disambiguation
// re-run loop.
func (p *Pipeline) dedupeConcepts(concepts []model.Concept) ([]model.Concept, []model.MergeOp, map[string]any) {
	deduper := dedup.New(p.settings.Policies.Deduplication)

	var lowBand, highBand []model.Concept
	for _, c := range concepts {
		if c.Level <= model.Level1 {
			lowBand = append(lowBand, c)
		} else {
			highBand = append(highBand, c)
		}
	}

	lowWinners, lowOps := deduper.Run(lowBand, dedup.ThresholdForBand(model.Level0, p.settings.Policies.Deduplication.Thresholds), p.obs)
	highWinners, highOps := deduper.Run(highBand, dedup.ThresholdForBand(model.Level2, p.settings.Policies.Deduplication.Thresholds), p.obs)

	winners := append(append([]model.Concept(nil), lowWinners...), highWinners...)
	ops := append(append([]model.MergeOp(nil), lowOps...), highOps...)
	sort.Slice(winners, func(i, j int) bool { return winners[i].ID < winners[j].ID })

	return winners, ops, map[string]any{"winners": len(winners), "merges": len(ops)}
}

func (p *Pipeline) runDeduplicationPhase(ctx context.Context) (map[string]any, error) {
	concepts, err := jsonl.ReadAll[model.Concept](p.path("validation", "concepts.jsonl"), nil)
	if err != nil {
		return nil, err
	}

	winners, ops, stats := p.dedupeConcepts(concepts)

	conceptsPath := p.path("dedup", "concepts.jsonl")
	opsPath := p.path("dedup", "merge_ops.jsonl")
	if err := jsonl.WriteAll(conceptsPath, winners); err != nil {
		return nil, err
	}
	if err := jsonl.WriteAll(opsPath, ops); err != nil {
		return nil, err
	}
	p.checkpoints.RegisterArtifact("deduplicated_concepts", conceptsPath)
	p.checkpoints.RegisterArtifact("merge_ops", opsPath)
	return stats, nil
}

// recordsByConceptID does a best-effort association of source records
// to concepts for disambiguation's context-window extraction: a record
// is attributed to a concept when its text mentions the concept's
// canonical label, capped per concept so one common label cannot blow
// up context-window construction.
func recordsByConceptID(concepts []model.Concept, records []model.SourceRecord) map[string][]model.SourceRecord {
	const maxRecordsPerConcept = 25
	byID := make(map[string][]model.SourceRecord, len(concepts))
	for _, c := range concepts {
		needle := strings.ToLower(c.CanonicalLabel)
		var matches []model.SourceRecord
		for _, r := range records {
			if strings.Contains(strings.ToLower(r.Text), needle) {
				matches = append(matches, r)
				if len(matches) >= maxRecordsPerConcept {
					break
				}
			}
		}
		byID[c.ID] = matches
	}
	return byID
}

// runDisambiguationPhase detects label collisions and applies
// confirmed splits, looping the validation/deduplication/
// disambiguation group (bounded by maxPostProcessorPasses) whenever a
// pass produces new split concepts that themselves need validating and
// deduplicating.
func (p *Pipeline) runDisambiguationPhase(ctx context.Context) (map[string]any, error) {
	concepts, err := jsonl.ReadAll[model.Concept](p.path("dedup", "concepts.jsonl"), nil)
	if err != nil {
		return nil, err
	}
	sourceRecords, err := jsonl.ReadAll[model.SourceRecord](p.path("S0", "source_records.jsonl"), nil)
	if err != nil {
		return nil, err
	}

	policy := p.settings.Policies.Disambiguation
	processor := disambiguate.NewDisambiguationProcessor(policy, disambiguate.NewLLMDisambiguator(policy, p.runner))

	var allSplitOps []model.SplitOp
	pass := 0
	for ; pass < maxPostProcessorPasses; pass++ {
		recordsByID := recordsByConceptID(concepts, sourceRecords)
		outcome := processor.Process(ctx, concepts, recordsByID, p.obs)
		concepts = outcome.Concepts
		allSplitOps = append(allSplitOps, outcome.SplitOps...)

		if len(outcome.SplitOps) == 0 {
			break
		}

		concepts, _, err = p.validateConcepts(ctx, concepts)
		if err != nil {
			return nil, err
		}
		concepts, _, _ = p.dedupeConcepts(concepts)
	}

	conceptsPath := p.path("disambiguation", "concepts.jsonl")
	splitsPath := p.path("disambiguation", "split_ops.jsonl")
	if err := jsonl.WriteAll(conceptsPath, concepts); err != nil {
		return nil, err
	}
	if err := jsonl.WriteAll(splitsPath, allSplitOps); err != nil {
		return nil, err
	}
	p.checkpoints.RegisterArtifact("disambiguated_concepts", conceptsPath)
	p.checkpoints.RegisterArtifact("split_ops", splitsPath)

	passes := pass + 1
	if passes > maxPostProcessorPasses {
		passes = maxPostProcessorPasses
	}
	return map[string]any{"concepts": len(concepts), "splits": len(allSplitOps), "passes": passes}, nil
}

// runFinalizePhase assembles the accepted concepts into the final DAG,
// validates its invariants, and writes the run manifest.
func (p *Pipeline) runFinalizePhase(ctx context.Context) (map[string]any, error) {
	concepts, err := jsonl.ReadAll[model.Concept](p.path("disambiguation", "concepts.jsonl"), nil)
	if err != nil {
		return nil, err
	}

	assembler := hierarchy.NewHierarchyAssembler(p.settings.Policies.Hierarchy)
	result := assembler.Run(concepts, p.obs)

	checker := hierarchy.NewInvariantChecker(p.settings.Policies.Validation.Rules.RequiredVocabularies)
	report := hierarchy.NewGraphValidator(checker).Run(result.Graph)

	// assembled=true: every concept the assembler admitted must now carry
	// exactly one parent (level 0 excepted), so this should never fire
	// unless the assembler itself has a bug the graph validator missed.
	for _, c := range result.Graph.Concepts() {
		if err := c.Validate(true); err != nil {
			p.obs.Increment("concept_invariant_violation", 1)
		}
	}

	graphPath := p.path("hierarchy", "concepts.jsonl")
	if err := jsonl.WriteAll(graphPath, result.Graph.Concepts()); err != nil {
		return nil, err
	}
	p.checkpoints.RegisterArtifact("hierarchy_concepts", graphPath)

	violationsPath := p.path("hierarchy", "violations.jsonl")
	if err := jsonl.WriteAll(violationsPath, report.Violations); err != nil {
		return nil, err
	}
	p.checkpoints.RegisterArtifact("hierarchy_violations", violationsPath)

	snapshot := p.obs.Snapshot(time.Now().UTC())
	auditEnabled := p.settings.Policies.LLM.Observability.AuditLogging
	var obsPath string
	if auditEnabled {
		payload := observability.BuildManifestPayload(snapshot)
		obsPath, err = p.checkpoints.WriteObservabilitySnapshot("final", payload)
		if err != nil {
			return nil, err
		}
	}

	manifest := p.checkpoints.BuildManifest(checkpoint.BuildManifestOptions{
		RunID:         p.runID,
		Environment:   string(p.settings.Environment),
		PolicyVersion: p.settings.Policies.PolicyVersion,
		Phases:        phaseSequence,
		Seeds: map[string]int64{
			"random_seed":     p.settings.RandomSeed,
			"llm_random_seed": int64(p.settings.Policies.LLM.RandomSeed),
		},
		Paths: map[string]string{
			"data":   p.settings.Paths.Data,
			"output": p.settings.Paths.Output,
		},
		AuditTrailEnabled: auditEnabled,
		ObservabilityPath: obsPath,
		Snapshot:          snapshot,
	})
	if err := p.checkpoints.WriteManifest(manifest); err != nil {
		return nil, err
	}

	stats := result.Graph.Statistics()
	return map[string]any{
		"nodes":               stats.NodeCount,
		"edges":               stats.EdgeCount,
		"placeholders":        len(result.Placeholders),
		"orphans":             len(result.Orphans),
		"invariants_violated": !report.Passed,
	}, nil
}
