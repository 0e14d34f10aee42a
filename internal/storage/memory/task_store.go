package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

// TaskStore is an in-memory implementation of storage.TaskStore.
type TaskStore struct {
	mu       sync.RWMutex
	masters  map[string]*domain.MasterTask
	children map[string]*domain.ChildTask
	pchilds  map[string]*domain.PredictionChild
}

// NewTaskStore creates a new in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		masters:  make(map[string]*domain.MasterTask),
		children: make(map[string]*domain.ChildTask),
		pchilds:  make(map[string]*domain.PredictionChild),
	}
}

// CreateMaster adds a new master task.
func (s *TaskStore) CreateMaster(_ context.Context, m *domain.MasterTask) error {
	if m == nil || m.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.masters[m.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *m
	now := time.Now()
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = now
	}
	if copy.UpdatedAt.IsZero() {
		copy.UpdatedAt = copy.CreatedAt
	}
	s.masters[copy.ID] = &copy
	return nil
}

// GetMaster retrieves a master by id.
func (s *TaskStore) GetMaster(_ context.Context, id string) (*domain.MasterTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.masters[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *m
	return &copy, nil
}

// ListMastersByStatus retrieves masters in the given status, ordered by
// priority ASC, created_at ASC.
func (s *TaskStore) ListMastersByStatus(_ context.Context, status int) ([]*domain.MasterTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MasterTask
	for _, m := range s.masters {
		if m.Status == status {
			copy := *m
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// UpdateMasterStatus transitions a master to the given status.
func (s *TaskStore) UpdateMasterStatus(_ context.Context, id string, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.masters[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	return nil
}

// ChildrenInRange retrieves existing children in [from, to] for any
// master of the (customer, connector), with the owner's priority.
func (s *TaskStore) ChildrenInRange(_ context.Context, customerID, connectorID int64, from, to time.Time) ([]storage.OwnedChild, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []storage.OwnedChild
	for _, c := range s.children {
		m, ok := s.masters[c.MasterID]
		if !ok || m.CustomerID != customerID || m.ConnectorID != connectorID {
			continue
		}
		if c.Date.Before(from) || c.Date.After(to) {
			continue
		}
		result = append(result, storage.OwnedChild{
			ChildID:  c.ID,
			Date:     c.Date,
			Priority: m.Priority,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// ApplySplit creates and deletes children atomically.
func (s *TaskStore) ApplySplit(_ context.Context, masterID string, create []*domain.ChildTask, deleteIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.masters[masterID]; !ok {
		return storage.ErrNotFound
	}

	// Validate everything before touching state.
	for _, c := range create {
		if c == nil || c.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.children[c.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, id := range deleteIDs {
		if _, ok := s.children[id]; !ok {
			return storage.ErrNotFound
		}
	}

	for _, id := range deleteIDs {
		delete(s.children, id)
	}
	for _, c := range create {
		copy := *c
		copy.MasterID = masterID
		s.children[copy.ID] = &copy
	}

	return nil
}

// CountChildren returns the number of remaining children of a master.
func (s *TaskStore) CountChildren(_ context.Context, masterID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.children {
		if c.MasterID == masterID {
			count++
		}
	}
	return count, nil
}

// DeleteChild removes a child task.
func (s *TaskStore) DeleteChild(_ context.Context, childID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.children[childID]; !ok {
		if _, ok := s.pchilds[childID]; ok {
			delete(s.pchilds, childID)
			return nil
		}
		return storage.ErrNotFound
	}
	delete(s.children, childID)
	return nil
}

// CreatePredictionChildren adds prediction children in bulk.
func (s *TaskStore) CreatePredictionChildren(_ context.Context, children []*domain.PredictionChild) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range children {
		if c == nil || c.ID == "" || c.MasterID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.pchilds[c.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, c := range children {
		copy := *c
		s.pchilds[copy.ID] = &copy
	}
	return nil
}

// CountPredictionChildren returns the number of remaining prediction
// children of a master.
func (s *TaskStore) CountPredictionChildren(_ context.Context, masterID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.pchilds {
		if c.MasterID == masterID {
			count++
		}
	}
	return count, nil
}

// DeleteCanceledBefore removes canceled masters last updated before
// cutoff, along with their children.
func (s *TaskStore) DeleteCanceledBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, m := range s.masters {
		if m.Status != domain.TaskStatusCanceled || !m.UpdatedAt.Before(cutoff) {
			continue
		}
		for cid, c := range s.children {
			if c.MasterID == id {
				delete(s.children, cid)
			}
		}
		for cid, c := range s.pchilds {
			if c.MasterID == id {
				delete(s.pchilds, cid)
			}
		}
		delete(s.masters, id)
		removed++
	}

	return removed, nil
}

var _ storage.TaskStore = (*TaskStore)(nil)
