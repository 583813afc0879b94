package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"milkledger/internal/core"
	"milkledger/internal/log"
	"milkledger/internal/metrics"
)

var (
	// ErrIndexOutOfRange means a positional operation referenced a record
	// that does not exist, usually because the caller's view is stale.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrStaleVersion means the ledger changed since the caller's snapshot.
	ErrStaleVersion = errors.New("ledger changed since snapshot")
)

// Snapshot is the ledger as read at one point, with its content version.
type Snapshot struct {
	Records []core.Record
	Version string
}

// Store owns the persisted ledger. It keeps no copy of the records: every
// call reads the slot, and every mutation writes the whole collection back
// before reporting success.
//
// Records are identified by position. A Delete shifts every later record
// down by one, so indexes obtained before it are invalid afterwards; use
// UpdateAt and DeleteAt with a Snapshot version to detect that.
type Store struct {
	mu       sync.Mutex
	slot     Slot
	notifier Notifier
	defaults core.Rates
	now      func() time.Time
}

type Option func(*Store)

// WithNotifier registers a notifier for successful mutations.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithDefaultRates sets the rates used for stored records that carry none.
// Inputs are stored with the rates they hold, including zero.
func WithDefaultRates(r core.Rates) Option {
	return func(s *Store) { s.defaults = r }
}

func NewStore(slot Slot, opts ...Option) *Store {
	s := &Store{
		slot:     slot,
		defaults: core.DefaultRates,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultRates returns the rates callers should offer when an input leaves
// a rate out.
func (s *Store) DefaultRates() core.Rates {
	return s.defaults
}

// List returns the full ledger in stored order.
func (s *Store) List(ctx context.Context) ([]core.Record, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Records, nil
}

// Snapshot returns the ledger together with its version.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.load(ctx)
	metrics.LedgerOperationsTotal.WithLabelValues("list", metrics.Outcome(err)).Inc()
	return snap, err
}

// Create prices the input, appends it and persists the ledger.
func (s *Store) Create(ctx context.Context, in core.RecordInput) (core.Record, error) {
	if err := in.Validate(); err != nil {
		metrics.LedgerOperationsTotal.WithLabelValues(string(core.OpCreate), metrics.ResultError).Inc()
		return core.Record{}, err
	}
	rec := in.Record()
	err := s.mutate(ctx, "", core.OpCreate, func(records []core.Record) ([]core.Record, int, error) {
		return append(records, rec), len(records), nil
	})
	if err != nil {
		return core.Record{}, err
	}
	slog.InfoContext(ctx, "Record created",
		log.FieldVendorName, rec.VendorName,
		"date", rec.Date.String(),
		log.FieldMilkType, rec.MilkType,
		log.FieldPrice, rec.Price)
	return rec, nil
}

// Update replaces the record at index with a freshly priced one.
func (s *Store) Update(ctx context.Context, index int, in core.RecordInput) (core.Record, error) {
	return s.UpdateAt(ctx, "", index, in)
}

// UpdateAt is Update guarded by a Snapshot version; an empty version skips
// the check.
func (s *Store) UpdateAt(ctx context.Context, version string, index int, in core.RecordInput) (core.Record, error) {
	if err := in.Validate(); err != nil {
		metrics.LedgerOperationsTotal.WithLabelValues(string(core.OpUpdate), metrics.ResultError).Inc()
		return core.Record{}, err
	}
	rec := in.Record()
	err := s.mutate(ctx, version, core.OpUpdate, func(records []core.Record) ([]core.Record, int, error) {
		if err := checkIndex(index, len(records)); err != nil {
			return nil, 0, err
		}
		records[index] = rec
		return records, index, nil
	})
	if err != nil {
		return core.Record{}, err
	}
	slog.InfoContext(ctx, "Record updated", log.FieldRecordIndex, index, log.FieldPrice, rec.Price)
	return rec, nil
}

// Delete removes the record at index. Later records move down by one.
func (s *Store) Delete(ctx context.Context, index int) (core.Record, error) {
	return s.DeleteAt(ctx, "", index)
}

// DeleteAt is Delete guarded by a Snapshot version; an empty version skips
// the check.
func (s *Store) DeleteAt(ctx context.Context, version string, index int) (core.Record, error) {
	var removed core.Record
	err := s.mutate(ctx, version, core.OpDelete, func(records []core.Record) ([]core.Record, int, error) {
		if err := checkIndex(index, len(records)); err != nil {
			return nil, 0, err
		}
		removed = records[index]
		return slices.Delete(records, index, index+1), index, nil
	})
	if err != nil {
		return core.Record{}, err
	}
	slog.InfoContext(ctx, "Record deleted", log.FieldRecordIndex, index, log.FieldVendorName, removed.VendorName)
	return removed, nil
}

// mutate runs one read-modify-write cycle. The slot is only written when fn
// succeeds, and the notifier only hears about writes that succeeded.
func (s *Store) mutate(ctx context.Context, expected string, op core.ChangeOp, fn func([]core.Record) ([]core.Record, int, error)) (err error) {
	defer func() {
		metrics.LedgerOperationsTotal.WithLabelValues(string(op), metrics.Outcome(err)).Inc()
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	if expected != "" && expected != snap.Version {
		return fmt.Errorf("%w: have %s, caller saw %s", ErrStaleVersion, snap.Version, expected)
	}

	next, index, err := fn(snap.Records)
	if err != nil {
		return err
	}

	payload, err := encode(next)
	if err != nil {
		return err
	}
	if err := s.slot.Save(ctx, payload); err != nil {
		return fmt.Errorf("save slot %s: %w", s.slot.Name(), err)
	}
	metrics.LedgerRecords.Set(float64(len(next)))

	s.notify(ctx, core.Change{
		Op:        op,
		Index:     index,
		Count:     len(next),
		Version:   version(payload),
		Timestamp: s.now(),
	})
	return nil
}

func (s *Store) load(ctx context.Context) (Snapshot, error) {
	payload, err := s.slot.Load(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load slot %s: %w", s.slot.Name(), err)
	}
	records, err := decode(payload, s.defaults)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load slot %s: %w", s.slot.Name(), err)
	}
	canonical, err := encode(records)
	if err != nil {
		return Snapshot{}, err
	}
	metrics.LedgerRecords.Set(float64(len(records)))
	return Snapshot{Records: records, Version: version(canonical)}, nil
}

func (s *Store) notify(ctx context.Context, change core.Change) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, change); err != nil {
		metrics.NotifyFailuresTotal.Inc()
		// The write already happened; a missed notification is not a failed mutation.
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			"op", change.Op,
			log.FieldRecordIndex, change.Index,
			"error", err)
	}
}

func checkIndex(index, length int) error {
	if index < 0 || index >= length {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, length)
	}
	return nil
}
