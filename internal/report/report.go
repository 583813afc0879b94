// Package report turns filtered ledger records into a fixed ten-column
// table and a formatted grand total. It knows nothing about document
// formats; see render.go and the sink packages for those.
package report

import (
	"context"
	"errors"
	"math"

	"milkledger/internal/core"
	"milkledger/internal/metrics"
)

// Columns is the number of cells in every row.
const Columns = 10

// DefaultName is the base file name used when a report is written to disk.
const DefaultName = "milk_records"

// ErrEmptyReport is returned when there is nothing to report. Callers show
// EmptyMessage instead of producing an empty document.
var ErrEmptyReport = errors.New("no records found for the given filters")

// EmptyMessage is the user-facing notice for ErrEmptyReport.
const EmptyMessage = "No records found for the given filters."

type (
	Row [Columns]string

	Report struct {
		Header Row
		Rows   []Row
		// Total is the grand total line, e.g. "Total Amount: 355.00 Rs".
		Total string
		// Amount is the unformatted grand total.
		Amount float64
	}

	// Sink publishes a built report somewhere outside the process.
	Sink interface {
		Name() string
		Publish(ctx context.Context, rep Report) error
	}
)

// Header labels in column order.
var Header = Row{
	"Date",
	"Time of Day",
	"Vendor Name",
	"Fat %",
	"SNF %",
	"Litre Qty",
	"Milk Type",
	"Cow Fat Rate",
	"Buffalo Fat Rate",
	"Amount in Rupees",
}

// Build renders matches as rows. Only the rate for the record's milk type is
// shown; the other rate cell holds the placeholder.
func Build(matches []core.Record, total float64) (Report, error) {
	if len(matches) == 0 {
		metrics.ReportsBuiltTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		return Report{}, ErrEmptyReport
	}

	rows := make([]Row, len(matches))
	for i, r := range matches {
		rows[i] = BuildRow(r)
	}

	metrics.ReportsBuiltTotal.WithLabelValues(metrics.ResultOK).Inc()
	return Report{
		Header: Header,
		Rows:   rows,
		Total:  TotalLine(total),
		Amount: total,
	}, nil
}

func BuildRow(r core.Record) Row {
	cowRate, buffaloRate := core.Placeholder, core.Placeholder
	switch r.MilkType {
	case core.Cow:
		cowRate = core.FormatFixed(r.CowRate)
	case core.Buffalo:
		buffaloRate = core.FormatFixed(r.BuffaloRate)
	}
	return Row{
		r.Date.String(),
		r.TimeOfDay.Label(),
		r.VendorName,
		core.FormatFixed(r.Fat),
		core.FormatFixed(r.SNF),
		core.FormatQuantity(r.LitreQuantity),
		r.MilkType.Label(),
		cowRate,
		buffaloRate,
		core.FormatPrice(r.Price),
	}
}

// TotalLine formats the grand total with its currency unit.
func TotalLine(total float64) string {
	if math.IsNaN(total) {
		total = 0
	}
	return "Total Amount: " + core.FormatFixed(total) + " " + core.CurrencyUnit
}
