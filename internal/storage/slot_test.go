package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteSlotRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "ledger.db")
	slot, err := NewSQLiteSlot(dbPath, "milkRecords")
	if err != nil {
		t.Fatalf("new slot: %v", err)
	}
	defer slot.Close()

	ctx := context.Background()
	got, err := slot.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected absent slot, got=%q err=%v", got, err)
	}
	if ts, err := slot.UpdatedAt(ctx); err != nil || !ts.IsZero() {
		t.Fatalf("expected zero timestamp, got %v err=%v", ts, err)
	}

	if err := slot.Save(ctx, []byte(`[{"a":1}]`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := slot.Save(ctx, []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = slot.Load(ctx)
	if err != nil || string(got) != "[]" {
		t.Fatalf("unexpected payload %q err=%v", got, err)
	}
	if ts, err := slot.UpdatedAt(ctx); err != nil || ts.IsZero() {
		t.Fatalf("expected timestamp after save, got %v err=%v", ts, err)
	}
}

func TestSQLiteSlotsAreIsolatedByName(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	a, err := NewSQLiteSlot(dbPath, "a")
	if err != nil {
		t.Fatalf("slot a: %v", err)
	}
	defer a.Close()
	b, err := NewSQLiteSlot(dbPath, "b")
	if err != nil {
		t.Fatalf("slot b: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	if err := a.Save(ctx, []byte(`["a"]`)); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if got, _ := b.Load(ctx); got != nil {
		t.Fatalf("slot b should be empty, got %q", got)
	}

	v, dirty, err := SchemaVersion(dbPath)
	if err != nil || dirty || v != 1 {
		t.Fatalf("schema version = %d dirty=%v err=%v", v, dirty, err)
	}
}
