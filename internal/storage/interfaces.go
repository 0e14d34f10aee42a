package storage

import (
	"context"
	"time"

	"adpulse/internal/domain"
)

// FactQuery selects metric facts for aggregation. All list filters are
// conjunctive; only active facts ever match.
type FactQuery struct {
	CustomerID   int64
	From, To     time.Time // inclusive date range
	Predicted    *bool     // nil matches both regimes
	ConnectorIDs []int64
	ChannelIDs   []int64
	LabelIDs     []int64
}

// FactStore provides access to metric_facts storage.
type FactStore interface {
	// Append adds facts atomically. Fails the entire batch on any duplicate
	// (customer, connector, channel, source, label, date, predicted) key.
	Append(ctx context.Context, facts []*domain.MetricFact) error

	// Query retrieves active facts matching q, ordered by date ASC, id ASC.
	Query(ctx context.Context, q FactQuery) ([]*domain.MetricFact, error)

	// DistinctSourcePairs retrieves the distinct (channel, source) pairs
	// present in the customer's active, non-predicted facts.
	DistinctSourcePairs(ctx context.Context, customerID int64) ([]domain.ChannelSource, error)

	// Deactivate soft-deletes active facts for a connector within
	// [from, to] by flipping their status to inactive.
	Deactivate(ctx context.Context, customerID, connectorID int64, from, to time.Time) error
}

// CustomerStore provides access to customer configuration: connectors,
// channels, metric catalog and last sync date.
type CustomerStore interface {
	// GetByID retrieves a fully materialized customer.
	// Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, customerID int64) (*domain.Customer, error)
}

// ChannelStore provides access to the channel/source catalog.
type ChannelStore interface {
	// ListSources retrieves (channel, source, label) rows for a customer,
	// ordered by channel ASC, source ASC.
	ListSources(ctx context.Context, customerID int64) ([]domain.SourceRef, error)
}

// TimelineStore provides access to timeline_events storage.
type TimelineStore interface {
	// Append adds events. Fails the entire batch on any duplicate id.
	Append(ctx context.Context, events []*domain.TimelineEvent) error

	// ListByDateRange retrieves a customer's events within [from, to],
	// ordered by date ASC, id ASC.
	ListByDateRange(ctx context.Context, customerID int64, from, to time.Time) ([]*domain.TimelineEvent, error)
}

// OwnedChild is an existing child task annotated with its owning
// master's priority, as loaded for split conflict resolution.
type OwnedChild struct {
	ChildID  string
	Date     time.Time
	Priority int
}

// TaskStore provides access to master and child task storage.
type TaskStore interface {
	// CreateMaster adds a new master task.
	// Returns ErrDuplicateKey if the id exists.
	CreateMaster(ctx context.Context, m *domain.MasterTask) error

	// GetMaster retrieves a master by id. Returns ErrNotFound if not exists.
	GetMaster(ctx context.Context, id string) (*domain.MasterTask, error)

	// ListMastersByStatus retrieves masters in the given status, ordered by
	// priority ASC, created_at ASC.
	ListMastersByStatus(ctx context.Context, status int) ([]*domain.MasterTask, error)

	// UpdateMasterStatus transitions a master to the given status.
	UpdateMasterStatus(ctx context.Context, id string, status int) error

	// ChildrenInRange retrieves existing children whose date falls within
	// [from, to] for any master of the same (customer, connector),
	// annotated with the owning master's priority.
	ChildrenInRange(ctx context.Context, customerID, connectorID int64, from, to time.Time) ([]OwnedChild, error)

	// ApplySplit creates children and deletes superseded ones as one
	// atomic transaction. On error nothing is applied.
	ApplySplit(ctx context.Context, masterID string, create []*domain.ChildTask, deleteIDs []string) error

	// CountChildren returns the number of remaining children of a master.
	CountChildren(ctx context.Context, masterID string) (int, error)

	// DeleteChild removes a child task (worker completion path).
	DeleteChild(ctx context.Context, childID string) error

	// CreatePredictionChildren adds prediction children in bulk.
	CreatePredictionChildren(ctx context.Context, children []*domain.PredictionChild) error

	// CountPredictionChildren returns the number of remaining prediction
	// children of a master.
	CountPredictionChildren(ctx context.Context, masterID string) (int, error)

	// DeleteCanceledBefore removes canceled masters (and their children)
	// last updated before cutoff. Returns the number of masters removed.
	DeleteCanceledBefore(ctx context.Context, cutoff time.Time) (int, error)
}
