// Package worker republishes the full-ledger report to external sinks when
// the ledger changes and on a schedule.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"milkledger/internal/amqp"
	"milkledger/internal/core"
	"milkledger/internal/ledger"
	"milkledger/internal/log"
	"milkledger/internal/metrics"
	"milkledger/internal/query"
	"milkledger/internal/report"
)

// ReportSync builds the unfiltered report and publishes it to every sink.
// Concurrent triggers share a single run.
type ReportSync struct {
	reader  ledger.Reader
	slot    string
	sinks   []report.Sink
	timeout time.Duration
	group   singleflight.Group
}

// NewReportSync creates a sync for the ledger stored in slot. Change
// messages for other slots are ignored.
func NewReportSync(reader ledger.Reader, slot string, sinks ...report.Sink) *ReportSync {
	return &ReportSync{
		reader:  reader,
		slot:    slot,
		sinks:   sinks,
		timeout: 2 * time.Minute,
	}
}

// Sinks returns the configured sink names.
func (w *ReportSync) Sinks() []string {
	names := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		names[i] = s.Name()
	}
	return names
}

// HandleChange processes a ledger change message from AMQP.
func (w *ReportSync) HandleChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	if msg.Slot != "" && msg.Slot != w.slot {
		slog.DebugContext(ctx, "Ignoring change for another slot", log.FieldSlot, msg.Slot)
		return nil
	}

	slog.InfoContext(ctx, "Processing ledger change",
		"op", msg.Op,
		log.FieldRecordIndex, msg.Index,
		"count", msg.Count,
		log.FieldVersion, msg.Version)

	if err := w.Sync(ctx); err != nil {
		return fmt.Errorf("republish report after %s: %w", msg.Op, err)
	}
	return nil
}

// Sync publishes the current report. Callers arriving while a run is in
// flight wait for it and receive its result.
func (w *ReportSync) Sync(ctx context.Context) error {
	_, err, shared := w.group.Do("report", func() (any, error) {
		return nil, w.publish(ctx)
	})
	if shared {
		slog.DebugContext(ctx, "Report sync coalesced with a run in flight")
	}
	return err
}

func (w *ReportSync) publish(ctx context.Context) error {
	if len(w.sinks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ReportPublishDuration.Observe(time.Since(start).Seconds())
	}()

	records, err := w.reader.List(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	rep, err := fullReport(records)
	if err != nil {
		return err
	}

	// A failing sink does not cancel the others.
	var g errgroup.Group
	errs := make([]error, len(w.sinks))
	for i, sink := range w.sinks {
		g.Go(func() error {
			err := sink.Publish(ctx, rep)
			metrics.ReportPublishTotal.WithLabelValues(sink.Name(), metrics.Outcome(err)).Inc()
			if err != nil {
				slog.ErrorContext(ctx, "Failed to publish report", log.FieldSink, sink.Name(), "error", err)
				errs[i] = fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Report published",
		"sinks", len(w.sinks),
		"rows", len(rep.Rows),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// fullReport builds the report for the whole ledger. An empty ledger yields
// a header-only report with a zero total.
func fullReport(records []core.Record) (report.Report, error) {
	res := query.Filter(records, query.Criteria{})
	rep, err := report.Build(res.Matches, res.Total)
	if errors.Is(err, report.ErrEmptyReport) {
		return report.Report{Header: report.Header, Total: report.TotalLine(0)}, nil
	}
	return rep, err
}
