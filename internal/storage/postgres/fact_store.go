package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// FactStore implements storage.FactStore using PostgreSQL.
type FactStore struct {
	pool *Pool
}

// NewFactStore creates a new FactStore.
func NewFactStore(pool *Pool) *FactStore {
	return &FactStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FactStore = (*FactStore)(nil)

// Append adds facts atomically. Fails the entire batch on any duplicate
// active (customer, connector, channel, source, label, date, predicted) key.
func (s *FactStore) Append(ctx context.Context, facts []*domain.MetricFact) error {
	if len(facts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO metric_facts (
			customer_id, connector_id, channel_id, source_id, label_id, fact_date, fact_value, predicted, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, f := range facts {
		status := f.Status
		if status == 0 {
			status = domain.FactStatusActive
		}
		_, err := tx.Exec(ctx, query,
			f.CustomerID,
			f.ConnectorID,
			f.ChannelID,
			f.SourceID,
			f.LabelID,
			f.Date,
			f.Value,
			f.Predicted,
			status,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert fact: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Query retrieves active facts matching q, ordered by date ASC, id ASC.
// Empty list filters are skipped.
func (s *FactStore) Query(ctx context.Context, q storage.FactQuery) ([]*domain.MetricFact, error) {
	query := `
		SELECT id, customer_id, connector_id, channel_id, source_id, label_id, fact_date, fact_value, predicted, status
		FROM metric_facts
		WHERE customer_id = $1 AND status = $2 AND fact_date >= $3 AND fact_date <= $4
	`
	args := []any{q.CustomerID, domain.FactStatusActive, q.From, q.To}

	if q.Predicted != nil {
		args = append(args, *q.Predicted)
		query += fmt.Sprintf(" AND predicted = $%d", len(args))
	}
	if len(q.ConnectorIDs) > 0 {
		args = append(args, q.ConnectorIDs)
		query += fmt.Sprintf(" AND connector_id = ANY($%d)", len(args))
	}
	if len(q.ChannelIDs) > 0 {
		args = append(args, q.ChannelIDs)
		query += fmt.Sprintf(" AND channel_id = ANY($%d)", len(args))
	}
	if len(q.LabelIDs) > 0 {
		args = append(args, q.LabelIDs)
		query += fmt.Sprintf(" AND label_id = ANY($%d)", len(args))
	}

	query += " ORDER BY fact_date ASC, id ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// DistinctSourcePairs retrieves the distinct (channel, source) pairs in
// the customer's active, non-predicted facts.
func (s *FactStore) DistinctSourcePairs(ctx context.Context, customerID int64) ([]domain.ChannelSource, error) {
	query := `
		SELECT DISTINCT channel_id, source_id
		FROM metric_facts
		WHERE customer_id = $1 AND status = $2 AND predicted = FALSE
		ORDER BY channel_id ASC, source_id ASC
	`

	rows, err := s.pool.Query(ctx, query, customerID, domain.FactStatusActive)
	if err != nil {
		return nil, fmt.Errorf("query distinct source pairs: %w", err)
	}
	defer rows.Close()

	var pairs []domain.ChannelSource
	for rows.Next() {
		var p domain.ChannelSource
		if err := rows.Scan(&p.ChannelID, &p.SourceID); err != nil {
			return nil, fmt.Errorf("scan source pair row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source pair rows: %w", err)
	}

	return pairs, nil
}

// Deactivate flips matching active facts to inactive.
func (s *FactStore) Deactivate(ctx context.Context, customerID, connectorID int64, from, to time.Time) error {
	query := `
		UPDATE metric_facts
		SET status = $1
		WHERE customer_id = $2 AND connector_id = $3 AND status = $4
		  AND fact_date >= $5 AND fact_date <= $6
	`

	_, err := s.pool.Exec(ctx, query,
		domain.FactStatusInactive, customerID, connectorID, domain.FactStatusActive, from, to)
	if err != nil {
		return fmt.Errorf("deactivate facts: %w", err)
	}
	return nil
}

// scanFacts scans multiple rows into a slice of MetricFact.
func scanFacts(rows pgx.Rows) ([]*domain.MetricFact, error) {
	var facts []*domain.MetricFact

	for rows.Next() {
		var f domain.MetricFact

		err := rows.Scan(
			&f.ID,
			&f.CustomerID,
			&f.ConnectorID,
			&f.ChannelID,
			&f.SourceID,
			&f.LabelID,
			&f.Date,
			&f.Value,
			&f.Predicted,
			&f.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}

		f.Date = f.Date.UTC()
		facts = append(facts, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fact rows: %w", err)
	}

	return facts, nil
}
