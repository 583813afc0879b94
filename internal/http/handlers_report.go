package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"milkledger/internal/core"
	"milkledger/internal/metrics"
	"milkledger/internal/query"
	"milkledger/internal/report"
)

// renderedReport is a report body ready to be written, cached per ledger
// version, filter and format.
type renderedReport struct {
	contentType string
	filename    string
	body        []byte
}

type priceResponse struct {
	Price     float64 `json:"price"`
	Formatted string  `json:"formatted"`
}

// handleReport exports the filtered ledger as JSON, CSV or aligned text.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(q.Get("format")))
	if format == "" {
		format = report.FormatJSON
	}
	switch format {
	case report.FormatJSON, report.FormatCSV, report.FormatText:
	default:
		writeError(w, r, fmt.Errorf("%w: %q", report.ErrUnknownFormat, format))
		return
	}

	crit, err := ParseCriteria(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := snap.Version + "|" + crit.Key() + "|" + format
	rendered, ok := s.reports.Get(key)
	if ok {
		metrics.ReportCacheTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.ReportCacheTotal.WithLabelValues("miss").Inc()
		rendered, err = renderReport(snap.Records, crit, format)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.reports.Add(key, rendered)
	}

	w.Header().Set("Content-Type", rendered.contentType)
	w.Header().Set("ETag", `"`+snap.Version+`"`)
	if rendered.filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+rendered.filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.body)
}

func renderReport(records []core.Record, crit query.Criteria, format string) (renderedReport, error) {
	res := query.Filter(records, crit)
	rep, err := report.Build(res.Matches, res.Total)
	if err != nil {
		return renderedReport{}, err
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, rep); err != nil {
		return renderedReport{}, err
	}
	switch format {
	case report.FormatJSON:
		return renderedReport{contentType: "application/json; charset=utf-8", body: buf.Bytes()}, nil
	case report.FormatCSV:
		return renderedReport{
			contentType: "text/csv; charset=utf-8",
			filename:    report.DefaultName + ".csv",
			body:        buf.Bytes(),
		}, nil
	}
	return renderedReport{contentType: "text/plain; charset=utf-8", body: buf.Bytes()}, nil
}

// handlePrice previews the price of a record without storing it.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePriceParams(r.URL.Query(), s.store.DefaultRates())
	if err != nil {
		writeError(w, r, err)
		return
	}
	price := p.Price()
	_ = NewJSONResponse().Data(priceResponse{
		Price:     price,
		Formatted: core.FormatPrice(price),
	}).Send(w)
}
