package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// FactStore is an in-memory implementation of storage.FactStore.
type FactStore struct {
	mu     sync.RWMutex
	data   map[int64]*domain.MetricFact
	keys   map[string]int64 // composite key -> fact id
	nextID int64
}

// NewFactStore creates a new in-memory fact store.
func NewFactStore() *FactStore {
	return &FactStore{
		data: make(map[int64]*domain.MetricFact),
		keys: make(map[string]int64),
	}
}

// factKey generates the unique key of a fact. At most one active fact may
// exist per key and predicted-flag value.
func factKey(f *domain.MetricFact) string {
	return fmt.Sprintf("%d|%d|%d|%d|%d|%s|%t",
		f.CustomerID, f.ConnectorID, f.ChannelID, f.SourceID, f.LabelID,
		f.Date.Format("2006-01-02"), f.Predicted)
}

// Append adds facts atomically. Fails the entire batch on any duplicate.
func (s *FactStore) Append(_ context.Context, facts []*domain.MetricFact) error {
	if len(facts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(facts))
	for _, f := range facts {
		if f == nil || f.CustomerID == 0 {
			return storage.ErrInvalidInput
		}
		key := factKey(f)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, f := range facts {
		s.nextID++
		copy := *f
		copy.ID = s.nextID
		if copy.Status == 0 {
			copy.Status = domain.FactStatusActive
		}
		s.data[copy.ID] = &copy
		s.keys[factKey(f)] = copy.ID
	}

	return nil
}

func containsID(ids []int64, id int64) bool {
	if len(ids) == 0 {
		return true // empty filter matches everything
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func inRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// Query retrieves active facts matching q, ordered by date ASC, id ASC.
func (s *FactStore) Query(_ context.Context, q storage.FactQuery) ([]*domain.MetricFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricFact
	for _, f := range s.data {
		if f.Status != domain.FactStatusActive || f.CustomerID != q.CustomerID {
			continue
		}
		if !inRange(f.Date, q.From, q.To) {
			continue
		}
		if q.Predicted != nil && f.Predicted != *q.Predicted {
			continue
		}
		if !containsID(q.ConnectorIDs, f.ConnectorID) ||
			!containsID(q.ChannelIDs, f.ChannelID) ||
			!containsID(q.LabelIDs, f.LabelID) {
			continue
		}
		copy := *f
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

// DistinctSourcePairs retrieves the distinct (channel, source) pairs in
// the customer's active, non-predicted facts, ordered by channel, source.
func (s *FactStore) DistinctSourcePairs(_ context.Context, customerID int64) ([]domain.ChannelSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[domain.ChannelSource]struct{})
	for _, f := range s.data {
		if f.Status != domain.FactStatusActive || f.CustomerID != customerID || f.Predicted {
			continue
		}
		seen[domain.ChannelSource{ChannelID: f.ChannelID, SourceID: f.SourceID}] = struct{}{}
	}

	pairs := make([]domain.ChannelSource, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].ChannelID != pairs[j].ChannelID {
			return pairs[i].ChannelID < pairs[j].ChannelID
		}
		return pairs[i].SourceID < pairs[j].SourceID
	})

	return pairs, nil
}

// Deactivate flips matching active facts to inactive.
func (s *FactStore) Deactivate(_ context.Context, customerID, connectorID int64, from, to time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.data {
		if f.Status != domain.FactStatusActive {
			continue
		}
		if f.CustomerID == customerID && f.ConnectorID == connectorID && inRange(f.Date, from, to) {
			f.Status = domain.FactStatusInactive
			// Uniqueness only covers active facts; the key is freed so the
			// same fact can be re-imported.
			delete(s.keys, factKey(f))
		}
	}
	return nil
}

var _ storage.FactStore = (*FactStore)(nil)
