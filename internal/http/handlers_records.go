package http

import (
	"net/http"

	"milkledger/internal/core"
	"milkledger/internal/log"
	"milkledger/internal/query"
)

// recordView is a record with its current position in the ledger.
type recordView struct {
	Index int `json:"index"`
	core.Record
}

type listResponse struct {
	Version string       `json:"version"`
	Count   int          `json:"count"`
	Total   float64      `json:"total"`
	Records []recordView `json:"records"`
}

type recordResponse struct {
	Version string      `json:"version,omitempty"`
	Record  core.Record `json:"record"`
	Index   *int        `json:"index,omitempty"`
}

// handleListRecords returns the ledger, optionally filtered. Indexes in the
// response are positions in the full ledger, usable for PUT and DELETE.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	crit, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	res := query.Filter(snap.Records, crit)
	views := make([]recordView, len(res.Matches))
	for i, rec := range res.Matches {
		views[i] = recordView{Index: res.Positions[i], Record: rec}
	}

	_ = NewJSONResponse().Version(snap.Version).Data(listResponse{
		Version: snap.Version,
		Count:   len(views),
		Total:   res.Total,
		Records: views,
	}).Send(w)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	in, err := NewRequestBodyParser(w, r).RecordInput(s.store.DefaultRates())
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logMutation(r, "create", -1, rec)

	version := s.currentVersion(r)
	_ = NewJSONResponse().
		Status(http.StatusCreated).
		Version(version).
		Data(recordResponse{Version: version, Record: rec}).
		Send(w)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	idx, err := ParseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := NewRequestBodyParser(w, r).RecordInput(s.store.DefaultRates())
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.store.UpdateAt(r.Context(), ParseIfMatch(r), idx, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logMutation(r, "update", idx, rec)

	version := s.currentVersion(r)
	_ = NewJSONResponse().
		Version(version).
		Data(recordResponse{Version: version, Record: rec, Index: &idx}).
		Send(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	idx, err := ParseIndex(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rec, err := s.store.DeleteAt(r.Context(), ParseIfMatch(r), idx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logMutation(r, "delete", idx, rec)

	version := s.currentVersion(r)
	_ = NewJSONResponse().
		Version(version).
		Data(recordResponse{Version: version, Record: rec, Index: &idx}).
		Send(w)
}

// currentVersion reads the ledger version after a mutation. A failed read
// only costs the client its ETag, so it is logged and left empty.
func (s *Server) currentVersion(r *http.Request) string {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Could not read ledger version after write", "error", err)
		return ""
	}
	return snap.Version
}

func (s *Server) logMutation(r *http.Request, op string, index int, rec core.Record) {
	fields := log.NewFields().
		WithOperation(op).
		WithRecord(index, rec.VendorName, string(rec.MilkType), rec.Price).
		WithClientIP(s.detector.ClientIP(r))
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger record changed via API", fields.ToSlice()...)
}
