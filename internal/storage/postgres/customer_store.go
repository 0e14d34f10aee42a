package postgres

import (
	"context"
	"fmt"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// CustomerStore implements storage.CustomerStore using PostgreSQL. A
// customer materializes from four tables: customers, customer_connectors,
// customer_channels and metric_labels.
type CustomerStore struct {
	pool *Pool
}

// NewCustomerStore creates a new CustomerStore.
func NewCustomerStore(pool *Pool) *CustomerStore {
	return &CustomerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CustomerStore = (*CustomerStore)(nil)

// GetByID retrieves a fully materialized customer.
func (s *CustomerStore) GetByID(ctx context.Context, customerID int64) (*domain.Customer, error) {
	var c domain.Customer
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, last_sync FROM customers WHERE id = $1`, customerID).
		Scan(&c.ID, &c.Name, &c.LastSync)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	c.LastSync = c.LastSync.UTC()

	rows, err := s.pool.Query(ctx,
		`SELECT connector_id FROM customer_connectors WHERE customer_id = $1 ORDER BY connector_id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query customer connectors: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan connector row: %w", err)
		}
		c.Connectors = append(c.Connectors, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connector rows: %w", err)
	}

	chRows, err := s.pool.Query(ctx,
		`SELECT channel_id FROM customer_channels WHERE customer_id = $1 AND active ORDER BY channel_id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query customer channels: %w", err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var id int64
		if err := chRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan channel row: %w", err)
		}
		c.Channels = append(c.Channels, id)
	}
	if err := chRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel rows: %w", err)
	}

	// The metric catalog: shared singles plus the customer's conversions.
	mRows, err := s.pool.Query(ctx, `
		SELECT id, name, kind
		FROM metric_labels
		WHERE customer_id IS NULL OR customer_id = $1
		ORDER BY kind ASC, id ASC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("query metric labels: %w", err)
	}
	defer mRows.Close()
	for mRows.Next() {
		var m domain.MetricDefinition
		var kind int
		if err := mRows.Scan(&m.LabelID, &m.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan metric label row: %w", err)
		}
		m.Kind = domain.MetricKind(kind)
		c.Metrics = append(c.Metrics, m)
	}
	if err := mRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric label rows: %w", err)
	}

	return &c, nil
}
