package postgres

import (
	"context"
	"fmt"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// TaskStore implements storage.TaskStore using PostgreSQL.
type TaskStore struct {
	pool *Pool
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(pool *Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TaskStore = (*TaskStore)(nil)

// CreateMaster adds a new master task.
func (s *TaskStore) CreateMaster(ctx context.Context, m *domain.MasterTask) error {
	query := `
		INSERT INTO task_masters (
			id, customer_id, connector_id, date_from, date_to, task_type, priority, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`

	_, err := s.pool.Exec(ctx, query,
		m.ID,
		m.CustomerID,
		m.ConnectorID,
		m.DateFrom,
		m.DateTo,
		m.Type,
		m.Priority,
		m.Status,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert master task: %w", err)
	}
	return nil
}

// GetMaster retrieves a master by id.
func (s *TaskStore) GetMaster(ctx context.Context, id string) (*domain.MasterTask, error) {
	query := `
		SELECT id, customer_id, connector_id, date_from, date_to, task_type, priority, status, created_at, updated_at
		FROM task_masters
		WHERE id = $1
	`

	var m domain.MasterTask
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&m.ID,
		&m.CustomerID,
		&m.ConnectorID,
		&m.DateFrom,
		&m.DateTo,
		&m.Type,
		&m.Priority,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get master task: %w", err)
	}

	m.DateFrom = m.DateFrom.UTC()
	m.DateTo = m.DateTo.UTC()
	return &m, nil
}

// ListMastersByStatus retrieves masters in the given status, ordered by
// priority ASC, created_at ASC.
func (s *TaskStore) ListMastersByStatus(ctx context.Context, status int) ([]*domain.MasterTask, error) {
	query := `
		SELECT id, customer_id, connector_id, date_from, date_to, task_type, priority, status, created_at, updated_at
		FROM task_masters
		WHERE status = $1
		ORDER BY priority ASC, created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list master tasks: %w", err)
	}
	defer rows.Close()

	var masters []*domain.MasterTask
	for rows.Next() {
		var m domain.MasterTask
		err := rows.Scan(
			&m.ID,
			&m.CustomerID,
			&m.ConnectorID,
			&m.DateFrom,
			&m.DateTo,
			&m.Type,
			&m.Priority,
			&m.Status,
			&m.CreatedAt,
			&m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan master task row: %w", err)
		}
		m.DateFrom = m.DateFrom.UTC()
		m.DateTo = m.DateTo.UTC()
		masters = append(masters, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate master task rows: %w", err)
	}

	return masters, nil
}

// UpdateMasterStatus transitions a master to the given status.
func (s *TaskStore) UpdateMasterStatus(ctx context.Context, id string, status int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_masters SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update master status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ChildrenInRange retrieves existing children in [from, to] for any
// master of the (customer, connector), annotated with the owner's
// priority.
func (s *TaskStore) ChildrenInRange(ctx context.Context, customerID, connectorID int64, from, to time.Time) ([]storage.OwnedChild, error) {
	query := `
		SELECT c.id, c.task_date, m.priority
		FROM task_children c
		JOIN task_masters m ON m.id = c.master_id
		WHERE m.customer_id = $1 AND m.connector_id = $2
		  AND c.task_date >= $3 AND c.task_date <= $4
		ORDER BY c.task_date ASC
	`

	rows, err := s.pool.Query(ctx, query, customerID, connectorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query children in range: %w", err)
	}
	defer rows.Close()

	var children []storage.OwnedChild
	for rows.Next() {
		var c storage.OwnedChild
		if err := rows.Scan(&c.ChildID, &c.Date, &c.Priority); err != nil {
			return nil, fmt.Errorf("scan child row: %w", err)
		}
		c.Date = c.Date.UTC()
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate child rows: %w", err)
	}

	return children, nil
}

// ApplySplit creates and deletes children as one transaction. On any
// failure the transaction rolls back and nothing is applied.
func (s *TaskStore) ApplySplit(ctx context.Context, masterID string, create []*domain.ChildTask, deleteIDs []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO task_children (id, master_id, task_date, status)
		VALUES ($1, $2, $3, $4)
	`
	for _, c := range create {
		if _, err := tx.Exec(ctx, insert, c.ID, masterID, c.Date, c.Status); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert child task: %w", err)
		}
	}

	if len(deleteIDs) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM task_children WHERE id = ANY($1)`, deleteIDs); err != nil {
			return fmt.Errorf("delete superseded children: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CountChildren returns the number of remaining children of a master.
func (s *TaskStore) CountChildren(ctx context.Context, masterID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM task_children WHERE master_id = $1`, masterID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

// DeleteChild removes a child task (worker completion path). Prediction
// children share the completion-by-deletion contract.
func (s *TaskStore) DeleteChild(ctx context.Context, childID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM task_children WHERE id = $1`, childID)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	if tag.RowsAffected() == 0 {
		tag, err = s.pool.Exec(ctx, `DELETE FROM prediction_children WHERE id = $1`, childID)
		if err != nil {
			return fmt.Errorf("delete prediction child: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
	}
	return nil
}

// CreatePredictionChildren adds prediction children in bulk.
func (s *TaskStore) CreatePredictionChildren(ctx context.Context, children []*domain.PredictionChild) error {
	if len(children) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO prediction_children (id, master_id, channel_id, source_id, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, c := range children {
		if _, err := tx.Exec(ctx, insert, c.ID, c.MasterID, c.ChannelID, c.SourceID, c.Status); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert prediction child: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CountPredictionChildren returns the number of remaining prediction
// children of a master.
func (s *TaskStore) CountPredictionChildren(ctx context.Context, masterID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM prediction_children WHERE master_id = $1`, masterID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count prediction children: %w", err)
	}
	return count, nil
}

// DeleteCanceledBefore removes canceled masters last updated before
// cutoff; children follow via ON DELETE CASCADE.
func (s *TaskStore) DeleteCanceledBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM task_masters WHERE status = $1 AND updated_at < $2`,
		domain.TaskStatusCanceled, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete canceled masters: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
