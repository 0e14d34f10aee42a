package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"adpulse/internal/domain"
	"adpulse/internal/observability"
	"adpulse/internal/storage"
)

// SplitFunc splits one master task into its child units.
type SplitFunc func(ctx context.Context, m *domain.MasterTask) error

// Runner is the periodic batch driver: it scans masters in status New,
// dispatches each through a compile-time registry keyed by task type, and
// reclaims canceled masters past their retention window. Masters are
// processed sequentially; a failed split leaves the master in New for the
// next pass.
type Runner struct {
	tasks    storage.TaskStore
	registry map[int]SplitFunc
	obs      *observability.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewRunner wires the dispatch table for all known task types.
func NewRunner(sched *Scheduler, tasks storage.TaskStore, log zerolog.Logger) *Runner {
	return &Runner{
		tasks: tasks,
		obs:   sched.obs,
		registry: map[int]SplitFunc{
			domain.TaskTypeImport:               sched.Split,
			domain.TaskTypeUpdate:               sched.Split,
			domain.TaskTypeDelete:               sched.Split,
			domain.TaskTypeFuturePrediction:     sched.SplitPrediction,
			domain.TaskTypeHistoricalPrediction: sched.SplitPrediction,
		},
		log: log,
		now: time.Now,
	}
}

// WithClock overrides the runner's clock.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// PassResult summarizes one runner pass.
type PassResult struct {
	Split     int
	Failed    int
	Reclaimed int
}

// RunPass executes one batch pass.
func (r *Runner) RunPass(ctx context.Context) (*PassResult, error) {
	masters, err := r.tasks.ListMastersByStatus(ctx, domain.TaskStatusNew)
	if err != nil {
		return nil, fmt.Errorf("list new masters: %w", err)
	}

	result := &PassResult{}
	for _, m := range masters {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		split, ok := r.registry[m.Type]
		if !ok {
			// Unknown codes are surfaced, never silently defaulted.
			return result, fmt.Errorf("dispatch master %s: %w: %d", m.ID, domain.ErrUnknownType, m.Type)
		}

		if err := split(ctx, m); err != nil {
			result.Failed++
			r.log.Error().Err(err).Str("master_id", m.ID).Msg("split failed, master left retryable")
			continue
		}
		result.Split++
	}

	cutoff := r.now().Add(-domain.KeepCanceledTime)
	reclaimed, err := r.tasks.DeleteCanceledBefore(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("reclaim canceled masters: %w", err)
	}
	result.Reclaimed = reclaimed
	if r.obs != nil {
		r.obs.CanceledMastersReclaimed.Add(float64(reclaimed))
	}

	r.log.Info().
		Int("split", result.Split).
		Int("failed", result.Failed).
		Int("reclaimed", result.Reclaimed).
		Msg("scheduler pass completed")

	return result, nil
}
