package memory

import (
	"context"
	"sort"
	"sync"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// ChannelStore is an in-memory implementation of storage.ChannelStore.
type ChannelStore struct {
	mu   sync.RWMutex
	data map[int64][]domain.SourceRef // keyed by customer id
}

// NewChannelStore creates a new in-memory channel/source catalog.
func NewChannelStore() *ChannelStore {
	return &ChannelStore{data: make(map[int64][]domain.SourceRef)}
}

// Insert adds a source row to a customer's catalog.
func (s *ChannelStore) Insert(_ context.Context, customerID int64, ref domain.SourceRef) error {
	if customerID == 0 || ref.ChannelID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[customerID] = append(s.data[customerID], ref)
	return nil
}

// ListSources retrieves a customer's catalog, ordered by channel, source.
func (s *ChannelStore) ListSources(_ context.Context, customerID int64) ([]domain.SourceRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := append([]domain.SourceRef(nil), s.data[customerID]...)
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ChannelID != refs[j].ChannelID {
			return refs[i].ChannelID < refs[j].ChannelID
		}
		return refs[i].SourceID < refs[j].SourceID
	})
	return refs, nil
}

var _ storage.ChannelStore = (*ChannelStore)(nil)
