package memory

import (
	"context"
	"sync"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// CustomerStore is an in-memory implementation of storage.CustomerStore.
type CustomerStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.Customer
}

// NewCustomerStore creates a new in-memory customer store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{data: make(map[int64]*domain.Customer)}
}

// Insert adds a customer. Returns ErrDuplicateKey if the id exists.
func (s *CustomerStore) Insert(_ context.Context, c *domain.Customer) error {
	if c == nil || c.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[c.ID] = copyCustomer(c)
	return nil
}

// GetByID retrieves a fully materialized customer.
func (s *CustomerStore) GetByID(_ context.Context, customerID int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[customerID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyCustomer(c), nil
}

func copyCustomer(c *domain.Customer) *domain.Customer {
	out := *c
	out.Connectors = append([]int64(nil), c.Connectors...)
	out.Channels = append([]int64(nil), c.Channels...)
	out.Metrics = append([]domain.MetricDefinition(nil), c.Metrics...)
	return &out
}

var _ storage.CustomerStore = (*CustomerStore)(nil)
