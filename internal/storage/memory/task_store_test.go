package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"adpulse/internal/domain"
	"adpulse/internal/storage"
)

func testMaster(id string, priority int, createdAt time.Time) *domain.MasterTask {
	return &domain.MasterTask{
		ID:          id,
		CustomerID:  1,
		ConnectorID: 1,
		DateFrom:    date(2024, time.March, 1),
		DateTo:      date(2024, time.March, 5),
		Type:        domain.TaskTypeImport,
		Priority:    priority,
		Status:      domain.TaskStatusNew,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestTaskStore_CreateAndGetMaster(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	m := testMaster("m1", domain.PriorityMedium, time.Time{})
	if err := s.CreateMaster(ctx, m); err != nil {
		t.Fatalf("CreateMaster: %v", err)
	}
	if err := s.CreateMaster(ctx, m); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate error = %v, want ErrDuplicateKey", err)
	}

	got, err := s.GetMaster(ctx, "m1")
	if err != nil {
		t.Fatalf("GetMaster: %v", err)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("zero timestamps should be defaulted on create")
	}

	if _, err := s.GetMaster(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing master error = %v, want ErrNotFound", err)
	}
}

func TestTaskStore_ListMastersByStatusOrder(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	base := date(2024, time.March, 1)
	masters := []*domain.MasterTask{
		testMaster("low-early", domain.PriorityLow, base),
		testMaster("high-late", domain.PriorityHigh, base.Add(time.Hour)),
		testMaster("high-early", domain.PriorityHigh, base),
		testMaster("medium", domain.PriorityMedium, base),
	}
	for _, m := range masters {
		if err := s.CreateMaster(ctx, m); err != nil {
			t.Fatalf("CreateMaster(%s): %v", m.ID, err)
		}
	}

	got, err := s.ListMastersByStatus(ctx, domain.TaskStatusNew)
	if err != nil {
		t.Fatalf("ListMastersByStatus: %v", err)
	}

	want := []string{"high-early", "high-late", "medium", "low-early"}
	if len(got) != len(want) {
		t.Fatalf("got %d masters, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestTaskStore_ApplySplitAtomicity(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	m := testMaster("m1", domain.PriorityMedium, time.Time{})
	if err := s.CreateMaster(ctx, m); err != nil {
		t.Fatalf("CreateMaster: %v", err)
	}

	create := []*domain.ChildTask{
		{ID: "c1", MasterID: "m1", Date: date(2024, time.March, 1), Status: domain.ChildStatusNew},
		{ID: "c2", MasterID: "m1", Date: date(2024, time.March, 2), Status: domain.ChildStatusNew},
	}
	if err := s.ApplySplit(ctx, "m1", create, nil); err != nil {
		t.Fatalf("ApplySplit: %v", err)
	}

	// Deleting an unknown child fails the whole operation: the create
	// must not be applied.
	bad := []*domain.ChildTask{
		{ID: "c3", MasterID: "m1", Date: date(2024, time.March, 3), Status: domain.ChildStatusNew},
	}
	err := s.ApplySplit(ctx, "m1", bad, []string{"ghost"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("ApplySplit error = %v, want ErrNotFound", err)
	}
	count, _ := s.CountChildren(ctx, "m1")
	if count != 2 {
		t.Errorf("children = %d after failed split, want 2", count)
	}

	// Replace c1 with c3 in one transaction.
	if err := s.ApplySplit(ctx, "m1", bad, []string{"c1"}); err != nil {
		t.Fatalf("ApplySplit replace: %v", err)
	}
	count, _ = s.CountChildren(ctx, "m1")
	if count != 2 {
		t.Errorf("children = %d after replace, want 2", count)
	}

	if err := s.ApplySplit(ctx, "nope", nil, nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("split for unknown master error = %v, want ErrNotFound", err)
	}
}

func TestTaskStore_ChildrenInRange(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	m1 := testMaster("m1", domain.PriorityHigh, time.Time{})
	m2 := testMaster("m2", domain.PriorityLow, time.Time{})
	other := testMaster("other", domain.PriorityMedium, time.Time{})
	other.ConnectorID = 2
	for _, m := range []*domain.MasterTask{m1, m2, other} {
		if err := s.CreateMaster(ctx, m); err != nil {
			t.Fatalf("CreateMaster: %v", err)
		}
	}

	if err := s.ApplySplit(ctx, "m1", []*domain.ChildTask{
		{ID: "a", Date: date(2024, time.March, 2), Status: domain.ChildStatusNew},
	}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplySplit(ctx, "m2", []*domain.ChildTask{
		{ID: "b", Date: date(2024, time.March, 4), Status: domain.ChildStatusNew},
		{ID: "c", Date: date(2024, time.April, 1), Status: domain.ChildStatusNew},
	}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplySplit(ctx, "other", []*domain.ChildTask{
		{ID: "d", Date: date(2024, time.March, 2), Status: domain.ChildStatusNew},
	}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.ChildrenInRange(ctx, 1, 1, date(2024, time.March, 1), date(2024, time.March, 31))
	if err != nil {
		t.Fatalf("ChildrenInRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d children, want 2", len(got))
	}
	if got[0].ChildID != "a" || got[0].Priority != domain.PriorityHigh {
		t.Errorf("got[0] = %+v, want child a with high priority", got[0])
	}
	if got[1].ChildID != "b" || got[1].Priority != domain.PriorityLow {
		t.Errorf("got[1] = %+v, want child b with low priority", got[1])
	}
}

func TestTaskStore_PredictionChildren(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	m := testMaster("m1", domain.PriorityMedium, time.Time{})
	if err := s.CreateMaster(ctx, m); err != nil {
		t.Fatal(err)
	}

	children := []*domain.PredictionChild{
		{ID: "p1", MasterID: "m1", ChannelID: 1, SourceID: 11, Status: domain.ChildStatusNew},
		{ID: "p2", MasterID: "m1", ChannelID: 1, SourceID: 12, Status: domain.ChildStatusNew},
	}
	if err := s.CreatePredictionChildren(ctx, children); err != nil {
		t.Fatalf("CreatePredictionChildren: %v", err)
	}

	count, err := s.CountPredictionChildren(ctx, "m1")
	if err != nil {
		t.Fatalf("CountPredictionChildren: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// DeleteChild falls through to prediction children.
	if err := s.DeleteChild(ctx, "p1"); err != nil {
		t.Fatalf("DeleteChild: %v", err)
	}
	count, _ = s.CountPredictionChildren(ctx, "m1")
	if count != 1 {
		t.Errorf("count = %d after delete, want 1", count)
	}

	if err := s.DeleteChild(ctx, "ghost"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("delete unknown child error = %v, want ErrNotFound", err)
	}
}

func TestTaskStore_DeleteCanceledBeforeCascades(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	old := date(2024, time.March, 1)
	m := testMaster("m1", domain.PriorityMedium, old)
	m.Status = domain.TaskStatusCanceled
	if err := s.CreateMaster(ctx, m); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplySplit(ctx, "m1", []*domain.ChildTask{
		{ID: "c1", Date: date(2024, time.March, 1), Status: domain.ChildStatusNew},
	}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePredictionChildren(ctx, []*domain.PredictionChild{
		{ID: "p1", MasterID: "m1", ChannelID: 1, SourceID: 11, Status: domain.ChildStatusNew},
	}); err != nil {
		t.Fatal(err)
	}

	removed, err := s.DeleteCanceledBefore(ctx, old.Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteCanceledBefore: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := s.GetMaster(ctx, "m1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("master should be gone, got %v", err)
	}
	count, _ := s.CountChildren(ctx, "m1")
	if count != 0 {
		t.Errorf("children = %d, want 0 after cascade", count)
	}
	count, _ = s.CountPredictionChildren(ctx, "m1")
	if count != 0 {
		t.Errorf("prediction children = %d, want 0 after cascade", count)
	}
}

func TestTaskStore_UpdateMasterStatus(t *testing.T) {
	ctx := context.Background()
	s := NewTaskStore()

	m := testMaster("m1", domain.PriorityMedium, time.Time{})
	if err := s.CreateMaster(ctx, m); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateMasterStatus(ctx, "m1", domain.TaskStatusSplit); err != nil {
		t.Fatalf("UpdateMasterStatus: %v", err)
	}
	got, _ := s.GetMaster(ctx, "m1")
	if got.Status != domain.TaskStatusSplit {
		t.Errorf("status = %d, want split", got.Status)
	}

	if err := s.UpdateMasterStatus(ctx, "nope", domain.TaskStatusSplit); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown master error = %v, want ErrNotFound", err)
	}
}
