package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// TimelineStore is an in-memory implementation of storage.TimelineStore.
type TimelineStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.TimelineEvent
	nextID int64
}

// NewTimelineStore creates a new in-memory timeline store.
func NewTimelineStore() *TimelineStore {
	return &TimelineStore{data: make(map[int64]*domain.TimelineEvent)}
}

// Append adds events. Ids of 0 are assigned; explicit duplicate ids fail
// the whole batch.
func (s *TimelineStore) Append(_ context.Context, events []*domain.TimelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e == nil || e.CustomerID == 0 {
			return storage.ErrInvalidInput
		}
		if e.ID != 0 {
			if _, exists := s.data[e.ID]; exists {
				return storage.ErrDuplicateKey
			}
		}
	}

	for _, e := range events {
		copy := *e
		if copy.ID == 0 {
			s.nextID++
			copy.ID = s.nextID
		} else if copy.ID > s.nextID {
			s.nextID = copy.ID
		}
		s.data[copy.ID] = &copy
	}
	return nil
}

// ListByDateRange retrieves a customer's events within [from, to],
// ordered by date ASC, id ASC.
func (s *TimelineStore) ListByDateRange(_ context.Context, customerID int64, from, to time.Time) ([]*domain.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TimelineEvent
	for _, e := range s.data {
		if e.CustomerID != customerID || e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.TimelineStore = (*TimelineStore)(nil)
