package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
)

// Format names accepted by Write.
const (
	FormatCSV  = "csv"
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned by Write for a format it cannot render.
var ErrUnknownFormat = errors.New("unknown report format")

// Document is the JSON form of a report.
type Document struct {
	Name   string  `json:"name"`
	Header Row     `json:"header"`
	Rows   []Row   `json:"rows"`
	Total  string  `json:"total"`
	Amount float64 `json:"amount"`
}

// Write renders rep in the named format. An empty format means text.
func Write(w io.Writer, format string, rep Report) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rep)
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatText, "":
		return WriteText(w, rep)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteCSV writes the header, one line per row, then the total line as a
// single-cell record.
func WriteCSV(w io.Writer, rep Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rep.Header[:]); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range rep.Rows {
		if err := cw.Write(rep.Rows[i][:]); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	if err := cw.Write([]string{rep.Total}); err != nil {
		return fmt.Errorf("write csv total: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes an aligned plain-text table followed by the total.
func WriteText(w io.Writer, rep Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	writeLine := func(r Row) {
		for i, cell := range r {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprint(tw, "\n")
	}
	writeLine(rep.Header)
	for _, r := range rep.Rows {
		writeLine(r)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write text table: %w", err)
	}
	if _, err := fmt.Fprintf(w, "\n%s\n", rep.Total); err != nil {
		return fmt.Errorf("write text total: %w", err)
	}
	return nil
}

// WriteJSON writes rep as a single Document followed by a newline.
func WriteJSON(w io.Writer, rep Report) error {
	rows := rep.Rows
	if rows == nil {
		rows = []Row{}
	}
	err := json.NewEncoder(w).Encode(Document{
		Name:   DefaultName,
		Header: rep.Header,
		Rows:   rows,
		Total:  rep.Total,
		Amount: rep.Amount,
	})
	if err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	return nil
}
