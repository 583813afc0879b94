package worker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"milkledger/internal/report"
)

// CSVSinkName identifies the CSV snapshot sink in logs and metrics.
const CSVSinkName = "csv"

// CSVFileSink keeps a CSV snapshot of the latest report on local disk.
// The file is replaced atomically on every publish.
type CSVFileSink struct {
	path string
}

var _ report.Sink = (*CSVFileSink)(nil)

func NewCSVFileSink(path string) *CSVFileSink {
	return &CSVFileSink{path: path}
}

func (s *CSVFileSink) Name() string { return CSVSinkName }

func (s *CSVFileSink) Path() string { return s.path }

func (s *CSVFileSink) Publish(ctx context.Context, rep report.Report) error {
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, rep); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}

	slog.InfoContext(ctx, "Report snapshot written",
		"path", s.path,
		"rows", len(rep.Rows),
		"size", humanize.Bytes(uint64(buf.Len())))
	return nil
}
