package postgres

import (
	"context"
	"fmt"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// ChannelStore implements storage.ChannelStore using PostgreSQL.
type ChannelStore struct {
	pool *Pool
}

// NewChannelStore creates a new ChannelStore.
func NewChannelStore(pool *Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ChannelStore = (*ChannelStore)(nil)

// ListSources retrieves a customer's (channel, source, label) catalog,
// ordered by channel ASC, source ASC.
func (s *ChannelStore) ListSources(ctx context.Context, customerID int64) ([]domain.SourceRef, error) {
	query := `
		SELECT channel_id, id, label
		FROM channel_sources
		WHERE customer_id = $1
		ORDER BY channel_id ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("query channel sources: %w", err)
	}
	defer rows.Close()

	var refs []domain.SourceRef
	for rows.Next() {
		var ref domain.SourceRef
		if err := rows.Scan(&ref.ChannelID, &ref.SourceID, &ref.Label); err != nil {
			return nil, fmt.Errorf("scan channel source row: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel source rows: %w", err)
	}

	return refs, nil
}
