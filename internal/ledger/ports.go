package ledger

import (
	"context"

	"milkledger/internal/core"
)

// Ports for outbound adapters.
type (
	// Slot is a single named storage location holding the whole serialized
	// ledger. Every write replaces the previous payload.
	Slot interface {
		Name() string
		// Load returns the stored payload, or nil with no error when the slot
		// has never been written.
		Load(ctx context.Context) ([]byte, error)
		Save(ctx context.Context, payload []byte) error
	}

	// Notifier is told about every mutation that reached storage.
	Notifier interface {
		Notify(ctx context.Context, change core.Change) error
	}

	// Reader is the read side of the store, used by report producers.
	Reader interface {
		List(ctx context.Context) ([]core.Record, error)
	}
)
