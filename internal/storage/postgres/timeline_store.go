package postgres

import (
	"context"
	"fmt"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// TimelineStore implements storage.TimelineStore using PostgreSQL.
type TimelineStore struct {
	pool *Pool
}

// NewTimelineStore creates a new TimelineStore.
func NewTimelineStore(pool *Pool) *TimelineStore {
	return &TimelineStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TimelineStore = (*TimelineStore)(nil)

// Append adds events atomically.
func (s *TimelineStore) Append(ctx context.Context, events []*domain.TimelineEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO timeline_events (customer_id, event_date, description)
		VALUES ($1, $2, $3)
	`
	for _, e := range events {
		if _, err := tx.Exec(ctx, insert, e.CustomerID, e.Date, e.Description); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert timeline event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListByDateRange retrieves a customer's events within [from, to],
// ordered by date ASC, id ASC.
func (s *TimelineStore) ListByDateRange(ctx context.Context, customerID int64, from, to time.Time) ([]*domain.TimelineEvent, error) {
	query := `
		SELECT id, customer_id, event_date, description
		FROM timeline_events
		WHERE customer_id = $1 AND event_date >= $2 AND event_date <= $3
		ORDER BY event_date ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, customerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query timeline events: %w", err)
	}
	defer rows.Close()

	var events []*domain.TimelineEvent
	for rows.Next() {
		var e domain.TimelineEvent
		if err := rows.Scan(&e.ID, &e.CustomerID, &e.Date, &e.Description); err != nil {
			return nil, fmt.Errorf("scan timeline event row: %w", err)
		}
		e.Date = e.Date.UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline event rows: %w", err)
	}

	return events, nil
}
