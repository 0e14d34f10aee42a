// Package scheduler decomposes coarse master tasks into atomic,
// priority-ordered child units and tracks their completion.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"adpulse/internal/domain"
	"adpulse/internal/observability"
	"adpulse/internal/period"
	"adpulse/internal/storage"
)

// Scheduler mutates one customer's schedule at a time; callers must
// serialize invocations per customer.
type Scheduler struct {
	tasks storage.TaskStore
	facts storage.FactStore
	obs   *observability.Metrics
	log   zerolog.Logger
}

// New creates a Scheduler. obs may be nil to disable metrics.
func New(tasks storage.TaskStore, facts storage.FactStore, obs *observability.Metrics, log zerolog.Logger) *Scheduler {
	return &Scheduler{tasks: tasks, facts: facts, obs: obs, log: log}
}

func dateKey(t time.Time) string {
	return period.Day(t).Format("2006-01-02")
}

// Split materializes one child task per calendar day in the master's
// range, diffed against children already scheduled for the same
// (customer, connector). A desired date is skipped when the existing
// child's owning master is at least as urgent (numerically lower or equal
// priority); otherwise the incumbent child is deleted and the date
// recreated under this master. Creations and deletions apply as one
// atomic transaction; on failure the master keeps its status and the
// split is retryable.
func (s *Scheduler) Split(ctx context.Context, m *domain.MasterTask) error {
	existing, err := s.tasks.ChildrenInRange(ctx, m.CustomerID, m.ConnectorID, m.DateFrom, m.DateTo)
	if err != nil {
		return fmt.Errorf("load existing children: %w", err)
	}

	byDate := make(map[string]storage.OwnedChild, len(existing))
	for _, c := range existing {
		byDate[dateKey(c.Date)] = c
	}

	var create []*domain.ChildTask
	var deleteIDs []string

	from, to := period.Day(m.DateFrom), period.Day(m.DateTo)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if c, ok := byDate[dateKey(d)]; ok {
			if c.Priority <= m.Priority {
				// The existing schedule wins; ties favor the incumbent.
				continue
			}
			deleteIDs = append(deleteIDs, c.ChildID)
		}
		create = append(create, &domain.ChildTask{
			ID:       uuid.NewString(),
			MasterID: m.ID,
			Date:     d,
			Status:   domain.ChildStatusNew,
		})
	}

	if err := s.tasks.ApplySplit(ctx, m.ID, create, deleteIDs); err != nil {
		return fmt.Errorf("apply split: %w", err)
	}

	if err := s.tasks.UpdateMasterStatus(ctx, m.ID, domain.TaskStatusSplit); err != nil {
		return fmt.Errorf("mark master split: %w", err)
	}
	m.Status = domain.TaskStatusSplit

	if s.obs != nil {
		s.obs.MastersSplit.Inc()
		s.obs.ChildTasksCreated.Add(float64(len(create)))
		s.obs.ChildTasksDeleted.Add(float64(len(deleteIDs)))
	}
	s.log.Info().
		Str("master_id", m.ID).
		Int("created", len(create)).
		Int("deleted", len(deleteIDs)).
		Msg("master split")

	return nil
}

// SplitPrediction materializes one prediction child per distinct
// (channel, source) pair present in the customer's active historical
// data. Unlike Split there is no conflict resolution against existing
// prediction children; units are recreated unconditionally each run.
func (s *Scheduler) SplitPrediction(ctx context.Context, m *domain.MasterTask) error {
	pairs, err := s.facts.DistinctSourcePairs(ctx, m.CustomerID)
	if err != nil {
		return fmt.Errorf("enumerate source pairs: %w", err)
	}

	children := make([]*domain.PredictionChild, 0, len(pairs))
	for _, p := range pairs {
		children = append(children, &domain.PredictionChild{
			ID:        uuid.NewString(),
			MasterID:  m.ID,
			ChannelID: p.ChannelID,
			SourceID:  p.SourceID,
			Status:    domain.ChildStatusNew,
		})
	}

	if err := s.tasks.CreatePredictionChildren(ctx, children); err != nil {
		return fmt.Errorf("create prediction children: %w", err)
	}

	if err := s.tasks.UpdateMasterStatus(ctx, m.ID, domain.TaskStatusSplit); err != nil {
		return fmt.Errorf("mark master split: %w", err)
	}
	m.Status = domain.TaskStatusSplit

	if s.obs != nil {
		s.obs.MastersSplit.Inc()
		s.obs.PredictionChildrenCreated.Add(float64(len(children)))
	}
	s.log.Info().
		Str("master_id", m.ID).
		Int("created", len(children)).
		Msg("prediction master split")

	return nil
}

// Progress reports the master's completion percentage. Workers remove a
// child row when its unit of work finishes, so progress is the share of
// children already consumed: 100 - floor(remaining/total*100). A master
// with nothing to do reports 0.
func (s *Scheduler) Progress(ctx context.Context, m *domain.MasterTask) (int, error) {
	var total, remaining int
	var err error

	if m.IsPrediction() {
		pairs, perr := s.facts.DistinctSourcePairs(ctx, m.CustomerID)
		if perr != nil {
			return 0, fmt.Errorf("enumerate source pairs: %w", perr)
		}
		total = len(pairs)
		remaining, err = s.tasks.CountPredictionChildren(ctx, m.ID)
	} else {
		total = period.Window{Start: period.Day(m.DateFrom), End: period.Day(m.DateTo)}.Days()
		remaining, err = s.tasks.CountChildren(ctx, m.ID)
	}
	if err != nil {
		return 0, fmt.Errorf("count remaining children: %w", err)
	}

	if total <= 0 {
		return 0, nil
	}
	return 100 - int(float64(remaining)/float64(total)*100), nil
}
