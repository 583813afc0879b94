// Package file stores the ledger slot as a JSON file on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"milkledger/internal/ledger"
	"milkledger/internal/log"
)

var _ ledger.Slot = (*Slot)(nil)

// Slot persists the payload to <dir>/<name>.json. Writes go to a temporary
// file in the same directory and are renamed into place, so a reader never
// sees a half-written ledger.
type Slot struct {
	name string
	path string
}

func New(dir, name string) (*Slot, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create slot directory: %w", err)
	}
	return &Slot{name: name, path: filepath.Join(dir, name+".json")}, nil
}

func (s *Slot) Name() string { return s.name }

// Path is the file backing the slot.
func (s *Slot) Path() string { return s.path }

func (s *Slot) Load(ctx context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return b, nil
}

func (s *Slot) Save(ctx context.Context, payload []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+s.name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	slog.DebugContext(ctx, "Ledger slot written",
		log.FieldSlot, s.name,
		"path", s.path,
		"size", humanize.Bytes(uint64(len(payload))))
	return nil
}
