package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"milkledger/internal/core"
)

// memSlot is a minimal in-process Slot. The memory package cannot be used
// here because it imports ledger.
type memSlot struct {
	mu      sync.Mutex
	payload []byte
}

func newMemSlot() *memSlot { return &memSlot{} }

func (m *memSlot) Name() string { return "milkRecords" }

func (m *memSlot) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payload == nil {
		return nil, nil
	}
	return append([]byte(nil), m.payload...), nil
}

func (m *memSlot) Save(_ context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = append([]byte{}, payload...)
	return nil
}

type failingSlot struct {
	*memSlot
	saveErr error
	loadErr error
}

func (f *failingSlot) Load(ctx context.Context) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.memSlot.Load(ctx)
}

func (f *failingSlot) Save(ctx context.Context, payload []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.memSlot.Save(ctx, payload)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []core.Change
	err     error
}

func (r *recordingNotifier) Notify(_ context.Context, c core.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return r.err
}

func (r *recordingNotifier) all() []core.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Change(nil), r.changes...)
}

func sampleInput(vendor string, day int) core.RecordInput {
	return core.RecordInput{
		Date:          core.NewDate(2024, 1, day),
		TimeOfDay:     core.Morning,
		VendorName:    vendor,
		LitreQuantity: 10,
		MilkType:      core.Cow,
		Fat:           4,
		SNF:           8,
		CowRate:       9,
		BuffaloRate:   9.5,
	}
}

func TestStore_CreateAndList(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := NewStore(newMemSlot(), WithNotifier(n))

	rec, err := s.Create(ctx, sampleInput("Ram", 5))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Price != 355 {
		t.Errorf("expected price 355, got %v", rec.Price)
	}

	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].VendorName != "Ram" || records[0].Date.String() != "2024-01-05" || records[0].Price != rec.Price {
		t.Fatalf("unexpected records: %+v", records)
	}

	changes := n.all()
	if len(changes) != 1 || changes[0].Op != core.OpCreate || changes[0].Index != 0 || changes[0].Count != 1 {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestStore_ListEmpty(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		slot Slot
	}{
		{"never written", newMemSlot()},
		{"empty payload", func() Slot {
			m := newMemSlot()
			_ = m.Save(ctx, []byte("  "))
			return m
		}()},
		{"empty array", func() Slot {
			m := newMemSlot()
			_ = m.Save(ctx, []byte("[]"))
			return m
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := NewStore(tt.slot).List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if records == nil || len(records) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v", records)
			}
		})
	}
}

func TestStore_UpdateKeepsPosition(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemSlot())
	for i, v := range []string{"A", "B", "C"} {
		if _, err := s.Create(ctx, sampleInput(v, i+1)); err != nil {
			t.Fatalf("create %s: %v", v, err)
		}
	}

	in := sampleInput("B2", 2)
	in.MilkType = core.Buffalo
	in.SNF = 9
	rec, err := s.Update(ctx, 1, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.Price != 380 {
		t.Errorf("expected repriced 380, got %v", rec.Price)
	}

	records, _ := s.List(ctx)
	got := []string{records[0].VendorName, records[1].VendorName, records[2].VendorName}
	want := []string{"A", "B2", "C"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order after update = %v, want %v", got, want)
		}
	}
}

func TestStore_DeleteShifts(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemSlot())
	for i, v := range []string{"A", "B", "C"} {
		if _, err := s.Create(ctx, sampleInput(v, i+1)); err != nil {
			t.Fatalf("create %s: %v", v, err)
		}
	}

	removed, err := s.Delete(ctx, 0)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.VendorName != "A" {
		t.Errorf("removed %q, want A", removed.VendorName)
	}
	records, _ := s.List(ctx)
	if len(records) != 2 || records[0].VendorName != "B" || records[1].VendorName != "C" {
		t.Fatalf("unexpected records after delete: %+v", records)
	}
}

func TestStore_IndexOutOfRange(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{}
	s := NewStore(newMemSlot(), WithNotifier(n))
	if _, err := s.Create(ctx, sampleInput("A", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, idx := range []int{-1, 1, 7} {
		if _, err := s.Update(ctx, idx, sampleInput("X", 1)); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("update(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
		if _, err := s.Delete(ctx, idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("delete(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if len(n.all()) != 1 {
		t.Errorf("failed operations must not notify, got %d changes", len(n.all()))
	}
}

func TestStore_ValidationRejectsBeforeWrite(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	s := NewStore(slot)

	in := sampleInput("", 1)
	if _, err := s.Create(ctx, in); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if b, _ := slot.Load(ctx); b != nil {
		t.Fatalf("slot should not have been written, got %q", b)
	}
}

func TestStore_FailedSaveLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	slot := &failingSlot{memSlot: newMemSlot()}
	n := &recordingNotifier{}
	s := NewStore(slot, WithNotifier(n))
	if _, err := s.Create(ctx, sampleInput("A", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := slot.memSlot.Load(ctx)

	boom := errors.New("disk full")
	slot.saveErr = boom
	if _, err := s.Create(ctx, sampleInput("B", 2)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}
	if _, err := s.Delete(ctx, 0); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped save error, got %v", err)
	}

	after, _ := slot.memSlot.Load(ctx)
	if string(before) != string(after) {
		t.Fatalf("slot changed after failed save:\nbefore %s\nafter  %s", before, after)
	}
	if len(n.all()) != 1 {
		t.Errorf("expected only the first create to notify, got %d", len(n.all()))
	}
}

func TestStore_LoadError(t *testing.T) {
	boom := errors.New("unreachable")
	s := NewStore(&failingSlot{memSlot: newMemSlot(), loadErr: boom})
	if _, err := s.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if _, err := s.Create(context.Background(), sampleInput("A", 1)); !errors.Is(err, boom) {
		t.Fatalf("expected load error on create, got %v", err)
	}
}

func TestStore_NotifierFailureDoesNotFailMutation(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	s := NewStore(newMemSlot(), WithNotifier(n))
	if _, err := s.Create(context.Background(), sampleInput("A", 1)); err != nil {
		t.Fatalf("create should succeed when notify fails: %v", err)
	}
}

func TestStore_LoadRepricesAndAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	slot := newMemSlot()
	payload := `[
		{"date":"2024-01-05","timeOfDay":"morning","vendorName":"Ram","litreQuantity":10,
		 "milkType":"cow","fat":4,"snf":8,"cowRate":9,"buffaloRate":9.5,"price":1},
		{"date":"2024-01-06","timeOfDay":"evening","vendorName":"Shyam","litreQuantity":5,
		 "milkType":"buffalo","fat":6,"snf":9}
	]`
	if err := slot.Save(ctx, []byte(payload)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewStore(slot, WithDefaultRates(core.Rates{Cow: 8, Buffalo: 10}))
	records, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if records[0].Price != 355 {
		t.Errorf("stored price should be ignored, got %v", records[0].Price)
	}
	if records[1].CowRate != 8 || records[1].BuffaloRate != 10 {
		t.Errorf("missing rates should default, got %+v", records[1])
	}
	if records[1].Price != 300 {
		t.Errorf("expected 6*10*5=300, got %v", records[1].Price)
	}
}

func TestStore_CreateKeepsGivenRates(t *testing.T) {
	tests := []struct {
		name        string
		cowRate     float64
		buffaloRate float64
		milkType    core.MilkType
	}{
		{"explicit zero cow rate", 0, 9.5, core.Cow},
		{"explicit zero buffalo rate", 9, 0, core.Buffalo},
		{"both zero", 0, 0, core.Cow},
		{"custom rates", 8, 11, core.Buffalo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(newMemSlot(), WithDefaultRates(core.Rates{Cow: 9, Buffalo: 9.5}))
			in := sampleInput("A", 1)
			in.SNF = 9
			in.MilkType = tt.milkType
			in.CowRate, in.BuffaloRate = tt.cowRate, tt.buffaloRate

			if _, err := s.Create(ctx, in); err != nil {
				t.Fatalf("create: %v", err)
			}
			records, err := s.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			got := records[0]
			if got.CowRate != tt.cowRate || got.BuffaloRate != tt.buffaloRate {
				t.Errorf("rates changed: got cow=%v buffalo=%v", got.CowRate, got.BuffaloRate)
			}
			want := core.CalculatePrice(in.Fat, in.SNF, in.MilkType, in.LitreQuantity, tt.cowRate, tt.buffaloRate)
			if got.Price != want {
				t.Errorf("price = %v, want %v", got.Price, want)
			}
		})
	}
}

func TestStore_CorruptPayload(t *testing.T) {
	slot := newMemSlot()
	_ = slot.Save(context.Background(), []byte(`{not json`))
	if _, err := NewStore(slot).List(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStore_VersionGuard(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMemSlot())
	for i, v := range []string{"A", "B"} {
		if _, err := s.Create(ctx, sampleInput(v, i+1)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	again, _ := s.Snapshot(ctx)
	if snap.Version != again.Version {
		t.Fatalf("version must be stable across reads: %s vs %s", snap.Version, again.Version)
	}

	// Someone else deletes the first record, so index 1 no longer means "B".
	if _, err := s.Delete(ctx, 0); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.DeleteAt(ctx, snap.Version, 1); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
	if _, err := s.UpdateAt(ctx, snap.Version, 0, sampleInput("X", 1)); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}

	fresh, _ := s.Snapshot(ctx)
	if fresh.Version == snap.Version {
		t.Fatal("version should change after a mutation")
	}
	if _, err := s.UpdateAt(ctx, fresh.Version, 0, sampleInput("B2", 2)); err != nil {
		t.Fatalf("update with fresh version: %v", err)
	}
}
