// Package checkpoint implements the per-phase checkpoint files and run
// manifest assembly. Every write goes through an atomic
// temp-file-plus-rename so a crash mid-write can never leave a torn
// checkpoint or manifest on disk.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
	"github.com/vkhangpham/taxonomy-generation/pkg/pipelineerr"
)

// Status is the small payload written after a phase completes successfully.
type Status struct {
	Phase       string    `json:"phase"`
	CompletedAt time.Time `json:"completed_at"`
	Stats       map[string]any `json:"stats,omitempty"`
}

// Artifact records one registered output file.
type Artifact struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// Manager owns the on-disk checkpoint files and artifact registry for
// a single run.
type Manager struct {
	runDir    string
	artifacts []Artifact
	stats     map[string]map[string]any
}

// New creates a Manager rooted at runDir, creating the directory if needed.
func New(runDir string) (*Manager, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("checkpoint: create run dir: %w", err)
	}
	return &Manager{runDir: runDir, stats: map[string]map[string]any{}}, nil
}

func (m *Manager) checkpointPath(phase string) string {
	return filepath.Join(m.runDir, phase+".checkpoint.json")
}

// Completed reports whether phase already has a checkpoint on disk.
func (m *Manager) Completed(phase string) bool {
	_, err := os.Stat(m.checkpointPath(phase))
	return err == nil
}

// Save writes the checkpoint for phase after it completes successfully.
func (m *Manager) Save(phase string, stats map[string]any) error {
	status := Status{Phase: phase, CompletedAt: time.Now().UTC(), Stats: stats}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal %s: %w", phase, err)
	}
	if err := atomicWrite(m.checkpointPath(phase), data); err != nil {
		return fmt.Errorf("checkpoint: write %s: %w", phase, err)
	}
	m.stats[phase] = stats
	return nil
}

// Load reads phase's checkpoint, if present.
func (m *Manager) Load(phase string) (*Status, error) {
	data, err := os.ReadFile(m.checkpointPath(phase))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("checkpoint: parse %s: %w", phase, err)
	}
	return &status, nil
}

// RegisterArtifact records a produced output file for inclusion in the manifest.
func (m *Manager) RegisterArtifact(kind, path string) {
	m.artifacts = append(m.artifacts, Artifact{Kind: kind, Path: path})
}

// ResolveResumePhase validates resumeFrom against the known phase
// ordering and returns the index to resume from. An unknown phase name
// is a fatal ResumePointUnknown error.
func ResolveResumePhase(phases []string, resumeFrom string) (int, error) {
	if resumeFrom == "" {
		return 0, nil
	}
	for i, p := range phases {
		if p == resumeFrom {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", pipelineerr.ErrResumePointUnknown, resumeFrom)
}

// Manifest is the final run manifest assembled at phase4_finalize.
type Manifest struct {
	RunID           string                        `json:"run_id"`
	Environment     string                        `json:"environment"`
	PolicyVersion   string                        `json:"policy_version"`
	Phases          []string                      `json:"phases"`
	Artifacts       []Artifact                    `json:"artifacts"`
	Statistics      map[string]map[string]any     `json:"statistics"`
	PromptVersions  map[string]string             `json:"prompt_versions"`
	Configuration   ManifestConfiguration         `json:"configuration"`
	Observability   *ManifestObservability        `json:"observability,omitempty"`
	OperationLogs   []observability.Operation     `json:"operation_logs"`
	EvidenceSamples observability.EvidencePayload `json:"evidence_samples"`
}

// ManifestConfiguration captures the seeds and paths a run executed with.
type ManifestConfiguration struct {
	Seeds map[string]int64 `json:"seeds"`
	Paths map[string]string `json:"paths"`
}

// ManifestObservability points at the exported snapshot file and its checksum.
type ManifestObservability struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// BuildManifestOptions carries everything needed to assemble a manifest.
type BuildManifestOptions struct {
	RunID              string
	Environment        string
	PolicyVersion      string
	Phases             []string
	Seeds              map[string]int64
	Paths              map[string]string
	AuditTrailEnabled  bool
	ObservabilityPath  string
	Snapshot           observability.Snapshot
	PriorObservability *ManifestObservability
}

// BuildManifest composes the run manifest. If AuditTrailEnabled is
// false, the observability section is omitted and any prior manifest
// values are preserved unchanged.
func (m *Manager) BuildManifest(opts BuildManifestOptions) Manifest {
	payload := observability.BuildManifestPayload(opts.Snapshot)

	manifest := Manifest{
		RunID:          opts.RunID,
		Environment:    opts.Environment,
		PolicyVersion:  opts.PolicyVersion,
		Phases:         append([]string(nil), opts.Phases...),
		Artifacts:      sortedArtifacts(m.artifacts),
		Statistics:     m.stats,
		PromptVersions: payload.PromptVersions,
		Configuration: ManifestConfiguration{
			Seeds: opts.Seeds,
			Paths: opts.Paths,
		},
		OperationLogs:   payload.Operations,
		EvidenceSamples: payload.Evidence,
	}

	if opts.AuditTrailEnabled {
		manifest.Observability = &ManifestObservability{Path: opts.ObservabilityPath, Checksum: payload.Checksum}
	} else {
		manifest.Observability = opts.PriorObservability
	}

	return manifest
}

func sortedArtifacts(artifacts []Artifact) []Artifact {
	out := append([]Artifact(nil), artifacts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// WriteManifest atomically writes manifest to <run_dir>/run_manifest.json.
func (m *Manager) WriteManifest(manifest Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal manifest: %w", err)
	}
	return atomicWrite(filepath.Join(m.runDir, "run_manifest.json"), data)
}

// WriteObservabilitySnapshot atomically writes the exported observability
// snapshot to <run_dir>/<phase>.observability.json.
func (m *Manager) WriteObservabilitySnapshot(name string, payload observability.ManifestPayload) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("checkpoint: marshal observability snapshot: %w", err)
	}
	path := filepath.Join(m.runDir, name+".observability.json")
	if err := atomicWrite(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// atomicWrite writes data to path via a temp file in the same
// directory followed by an atomic rename, so a crash never leaves a
// half-written artifact behind.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
