package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"milkledger/internal/ledger"
)

var _ ledger.Slot = (*Slot)(nil)

// Slot keeps the ledger payload in process memory.
type Slot struct {
	mu      sync.Mutex
	name    string
	payload []byte
	written bool
}

func New(name string) *Slot {
	return &Slot{name: name}
}

// NewFromFile seeds the slot from <base>/<name>.json when it exists, so a
// demo ledger can be started with sample data.
func NewFromFile(base, name string) *Slot {
	s := New(name)
	if b, err := os.ReadFile(filepath.Join(base, name+".json")); err == nil {
		s.payload = b
		s.written = true
	}
	return s
}

func (s *Slot) Name() string { return s.name }

// Load returns a copy of the stored payload.
func (s *Slot) Load(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.written {
		return nil, nil
	}
	return append([]byte(nil), s.payload...), nil
}

// Save replaces the payload.
func (s *Slot) Save(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = append([]byte(nil), payload...)
	s.written = true
	return nil
}
