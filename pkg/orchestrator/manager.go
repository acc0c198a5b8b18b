// Package orchestrator drives the fixed phase sequence
// (phase1_level0..3, phase2_consolidation, phase3_validation,
// phase3_deduplication, phase3_disambiguation, phase4_finalize) over a
// single run directory: opening an observability scope per phase,
// skipping phases a checkpoint already completed, saving a checkpoint
// after each success, and propagating or swallowing phase errors per
// raise_on_error. It also provides the bounded worker pool phases use
// for per-record fan-out.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/vkhangpham/taxonomy-generation/pkg/checkpoint"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
	"github.com/vkhangpham/taxonomy-generation/pkg/pipelineerr"
)

// PhaseFunc executes one phase's work against the run's shared context
// and returns the stats to be written into its checkpoint.
type PhaseFunc func(ctx context.Context) (map[string]any, error)

// PhaseSpec names one entry in the fixed phase sequence.
type PhaseSpec struct {
	Name         string
	Fn           PhaseFunc
	RaiseOnError bool
}

// Manager sequences PhaseSpecs against a checkpoint.Manager and an
// observability context.
type Manager struct {
	checkpoints *checkpoint.Manager
	obs         *observability.ObservabilityContext
	phases      []PhaseSpec
}

// NewManager binds a Manager to checkpoints, obs, and the ordered
// phase list it will drive.
func NewManager(checkpoints *checkpoint.Manager, obs *observability.ObservabilityContext, phases []PhaseSpec) *Manager {
	return &Manager{checkpoints: checkpoints, obs: obs, phases: phases}
}

// PhaseNames returns the configured phase sequence, in order.
func (m *Manager) PhaseNames() []string {
	names := make([]string, len(m.phases))
	for i, p := range m.phases {
		names[i] = p.Name
	}
	return names
}

// Run executes phases starting at startIndex (as resolved by
// checkpoint.ResolveResumePhase), skipping any phase whose checkpoint
// is already on disk. For each phase it opens an observability scope,
// calls the phase function, and on success saves the checkpoint. On
// error it logs an operation with outcome=error and either propagates
// (RaiseOnError) or continues to the next phase without writing a
// checkpoint for the failed one.
func (m *Manager) Run(ctx context.Context, startIndex int) error {
	for i := startIndex; i < len(m.phases); i++ {
		spec := m.phases[i]

		if m.checkpoints.Completed(spec.Name) {
			slog.Info("orchestrator: skipping completed phase", "phase", spec.Name)
			continue
		}

		if err := m.runPhase(ctx, spec); err != nil {
			if spec.RaiseOnError {
				return err
			}
		}
	}
	return nil
}

func (m *Manager) runPhase(ctx context.Context, spec PhaseSpec) error {
	slog.Info("orchestrator: starting phase", "phase", spec.Name)
	scope := m.obs.Phase(spec.Name)
	defer scope.Close()

	stats, err := spec.Fn(ctx)
	if err != nil {
		m.obs.LogOperation(spec.Name, "error", map[string]any{"error": err.Error()})
		slog.Error("orchestrator: phase failed", "phase", spec.Name, "error", err)
		return pipelineerr.New(spec.Name, err)
	}

	if err := m.checkpoints.Save(spec.Name, stats); err != nil {
		return pipelineerr.New(spec.Name, err)
	}

	m.obs.LogOperation(spec.Name, "passed", stats)
	slog.Info("orchestrator: phase complete", "phase", spec.Name)
	return nil
}
