package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/risklab/internal/core"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, core.StrategyInput{
		Name:       strPtr("score cutoff"),
		PythonCode: strPtr("print('{}')"),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("expected ID 1, got %d", created.ID)
	}
	if created.Status != core.StrategyInactive {
		t.Errorf("expected default status inactive, got %s", created.Status)
	}
	if created.UpdatedAt != nil {
		t.Error("new strategy should have no updated_at")
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "score cutoff" || *got.PythonCode != "print('{}')" {
		t.Errorf("unexpected strategy: %+v", got)
	}
}

func TestMemoryStore_CreateRequiresName(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create(context.Background(), core.StrategyInput{})
	if !errors.Is(err, core.ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), 42)
	if !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestMemoryStore_ListPaging(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c", "d"} {
		if _, err := store.Create(ctx, core.StrategyInput{Name: strPtr(name)}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		filter ListFilter
		want   []string
	}{
		{ListFilter{}, []string{"a", "b", "c", "d"}},
		{ListFilter{Skip: 1, Limit: intPtr(2)}, []string{"b", "c"}},
		{ListFilter{Limit: intPtr(0)}, []string{}},
		{ListFilter{Skip: 3}, []string{"d"}},
		{ListFilter{Skip: 10}, []string{}},
	}

	for _, tt := range tests {
		got, err := store.List(ctx, tt.filter)
		if err != nil {
			t.Fatalf("List(%+v): %v", tt.filter, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("List(%+v): expected %d, got %d", tt.filter, len(tt.want), len(got))
		}
		for i := range got {
			if got[i].Name != tt.want[i] {
				t.Errorf("List(%+v)[%d]: expected %s, got %s", tt.filter, i, tt.want[i], got[i].Name)
			}
		}
	}
}

func TestMemoryStore_UpdatePartial(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	created, _ := store.Create(ctx, core.StrategyInput{
		Name:        strPtr("orig"),
		Description: strPtr("keep me"),
	})

	active := core.StrategyActive
	updated, err := store.Update(ctx, created.ID, core.StrategyInput{Status: &active})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "orig" || *updated.Description != "keep me" {
		t.Errorf("unset fields changed: %+v", updated)
	}
	if updated.Status != core.StrategyActive {
		t.Errorf("expected active, got %s", updated.Status)
	}
	if updated.UpdatedAt == nil || !updated.UpdatedAt.Equal(fixed) {
		t.Errorf("expected updated_at %v, got %v", fixed, updated.UpdatedAt)
	}
}

func TestMemoryStore_UpdateInvalid(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, core.StrategyInput{Name: strPtr("x")})

	bogus := core.StrategyStatus("archived")
	if _, err := store.Update(ctx, created.ID, core.StrategyInput{Status: &bogus}); !errors.Is(err, core.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := store.Update(ctx, 99, core.StrategyInput{}); !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, core.StrategyInput{Name: strPtr("gone")})

	deleted, err := store.Delete(ctx, created.ID)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted.Name != "gone" {
		t.Errorf("expected deleted strategy returned, got %+v", deleted)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if _, err := store.Delete(ctx, created.ID); !errors.Is(err, core.ErrStrategyNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, core.StrategyInput{Name: strPtr("x")})

	created.Name = "mutated"
	got, _ := store.Get(ctx, created.ID)
	if got.Name != "x" {
		t.Errorf("store state leaked through returned pointer: %s", got.Name)
	}
}
