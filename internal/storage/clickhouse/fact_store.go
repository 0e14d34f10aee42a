package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// FactStore implements storage.FactStore using ClickHouse. It serves
// the same interface as the PostgreSQL store but is suited for
// customers with large fact volumes.
type FactStore struct {
	conn *Conn
}

// NewFactStore creates a new FactStore.
func NewFactStore(conn *Conn) *FactStore {
	return &FactStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FactStore = (*FactStore)(nil)

// Append adds facts atomically. Fails the entire batch on any duplicate
// (customer, connector, channel, source, label, date, predicted) key.
func (s *FactStore) Append(ctx context.Context, facts []*domain.MetricFact) error {
	if len(facts) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, f := range facts {
		k := factKey(f)
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, f := range facts {
		exists, err := s.exists(ctx, f)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	nextID, err := s.maxID(ctx)
	if err != nil {
		return fmt.Errorf("read max fact id: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_facts (
			id, customer_id, connector_id, channel_id, source_id,
			label_id, fact_date, fact_value, predicted, status
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, f := range facts {
		if f.ID == 0 {
			nextID++
			f.ID = nextID
		}
		if f.Status == 0 {
			f.Status = domain.FactStatusActive
		}
		err = batch.Append(
			f.ID, f.CustomerID, f.ConnectorID, f.ChannelID, f.SourceID,
			f.LabelID, f.Date, f.Value, f.Predicted, int32(f.Status),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Query retrieves active facts matching q, ordered by date ASC, id ASC.
func (s *FactStore) Query(ctx context.Context, q storage.FactQuery) ([]*domain.MetricFact, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, customer_id, connector_id, channel_id, source_id,
		       label_id, fact_date, fact_value, predicted, status
		FROM metric_facts
		WHERE customer_id = ? AND status = ?
		  AND fact_date >= ? AND fact_date <= ?
	`)
	args := []interface{}{q.CustomerID, int32(domain.FactStatusActive), q.From, q.To}

	if q.Predicted != nil {
		sb.WriteString(" AND predicted = ?")
		args = append(args, *q.Predicted)
	}
	if len(q.ConnectorIDs) > 0 {
		sb.WriteString(" AND has(?, connector_id)")
		args = append(args, q.ConnectorIDs)
	}
	if len(q.ChannelIDs) > 0 {
		sb.WriteString(" AND has(?, channel_id)")
		args = append(args, q.ChannelIDs)
	}
	if len(q.LabelIDs) > 0 {
		sb.WriteString(" AND has(?, label_id)")
		args = append(args, q.LabelIDs)
	}
	sb.WriteString(" ORDER BY fact_date ASC, id ASC")

	rows, err := s.conn.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	return scanFacts(rows)
}

// DistinctSourcePairs retrieves the distinct (channel, source) pairs
// present in the customer's active, non-predicted facts.
func (s *FactStore) DistinctSourcePairs(ctx context.Context, customerID int64) ([]domain.ChannelSource, error) {
	query := `
		SELECT DISTINCT channel_id, source_id
		FROM metric_facts
		WHERE customer_id = ? AND predicted = false AND status = ?
		ORDER BY channel_id ASC, source_id ASC
	`

	rows, err := s.conn.Query(ctx, query, customerID, int32(domain.FactStatusActive))
	if err != nil {
		return nil, fmt.Errorf("query source pairs: %w", err)
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

// Deactivate soft-deletes active facts for a connector within [from, to].
// Uses a lightweight mutation; readers may briefly observe stale status.
func (s *FactStore) Deactivate(ctx context.Context, customerID, connectorID int64, from, to time.Time) error {
	query := `
		ALTER TABLE metric_facts UPDATE status = ?
		WHERE customer_id = ? AND connector_id = ?
		  AND fact_date >= ? AND fact_date <= ?
		  AND status = ?
	`

	err := s.conn.Exec(ctx, query,
		int32(domain.FactStatusInactive), customerID, connectorID,
		from, to, int32(domain.FactStatusActive),
	)
	if err != nil {
		return fmt.Errorf("deactivate facts: %w", err)
	}
	return nil
}

// exists checks if an active fact with the same natural key exists.
func (s *FactStore) exists(ctx context.Context, f *domain.MetricFact) (bool, error) {
	query := `
		SELECT count(*) FROM metric_facts
		WHERE customer_id = ? AND connector_id = ? AND channel_id = ?
		  AND source_id = ? AND label_id = ? AND fact_date = ?
		  AND predicted = ? AND status = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query,
		f.CustomerID, f.ConnectorID, f.ChannelID, f.SourceID,
		f.LabelID, f.Date, f.Predicted, int32(domain.FactStatusActive),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// maxID reads the largest assigned fact id.
func (s *FactStore) maxID(ctx context.Context) (int64, error) {
	var max int64
	err := s.conn.QueryRow(ctx, `SELECT max(id) FROM metric_facts`).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func factKey(f *domain.MetricFact) string {
	return fmt.Sprintf("%d|%d|%d|%d|%d|%s|%t",
		f.CustomerID, f.ConnectorID, f.ChannelID, f.SourceID,
		f.LabelID, f.Date.Format("2006-01-02"), f.Predicted)
}

// chRows is the row-set surface used by scanners.
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanFacts scans multiple rows.
func scanFacts(rows chRows) ([]*domain.MetricFact, error) {
	var facts []*domain.MetricFact

	for rows.Next() {
		var f domain.MetricFact
		var status int32

		err := rows.Scan(
			&f.ID, &f.CustomerID, &f.ConnectorID, &f.ChannelID, &f.SourceID,
			&f.LabelID, &f.Date, &f.Value, &f.Predicted, &status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}

		f.Status = int(status)
		f.Date = f.Date.UTC()
		facts = append(facts, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fact rows: %w", err)
	}

	return facts, nil
}
