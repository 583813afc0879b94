// Package http provides the ledger's HTTP API.
//
// This file turns request bodies, query strings and path values into
// domain inputs. Bodies may be JSON or form-encoded.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"milkledger/internal/core"
	"milkledger/internal/query"
)

// maxBodyBytes bounds record submissions.
const maxBodyBytes = 64 << 10

// errBadRequest marks malformed requests that are not domain validation
// failures, such as a non-numeric path index.
var errBadRequest = errors.New("bad request")

// RequestBodyParser reads a request body once and decodes it as JSON or as
// form data, depending on its first byte.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]json.RawMessage
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. It is safe to call more than once.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: read body: %v", errBadRequest, p.err)
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form body: %v", errBadRequest, p.err)
	}
	return p.err
}

// Get returns a sanitized string value from the parsed body. JSON numbers
// are returned in their literal form.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		raw, ok := p.jsonData[key]
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return sanitizeInput(s)
		}
		v := strings.TrimSpace(string(raw))
		if v == "null" {
			return ""
		}
		return sanitizeInput(v)
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// RecordInput builds a record input from the body. A rate that is absent,
// null or empty takes its value from defaults; any given rate, zero
// included, is kept.
func (p *RequestBodyParser) RecordInput(defaults core.Rates) (core.RecordInput, error) {
	if err := p.Parse(); err != nil {
		return core.RecordInput{}, err
	}

	var err error
	in := core.RecordInput{
		CowRate:     defaults.Cow,
		BuffaloRate: defaults.Buffalo,
	}
	if in.Date, err = core.ParseDate(p.Get("date")); err != nil {
		return core.RecordInput{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	in.TimeOfDay = core.TimeOfDay(strings.ToLower(p.Get("timeOfDay")))
	in.VendorName = p.Get("vendorName")
	in.MilkType = core.MilkType(strings.ToLower(p.Get("milkType")))

	numbers := []struct {
		key      string
		dst      *float64
		optional bool
	}{
		{"litreQuantity", &in.LitreQuantity, false},
		{"fat", &in.Fat, false},
		{"snf", &in.SNF, false},
		{"cowRate", &in.CowRate, true},
		{"buffaloRate", &in.BuffaloRate, true},
	}
	for _, n := range numbers {
		raw := p.Get(n.key)
		if raw == "" && n.optional {
			continue
		}
		if *n.dst, err = parseNumber(n.key, raw); err != nil {
			return core.RecordInput{}, err
		}
	}
	return in, nil
}

// parseNumber treats an empty field as zero, the way an untouched numeric
// form field is read. NaN and infinities are rejected.
func parseNumber(key, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number, got %q", core.ErrValidation, key, raw)
	}
	return f, nil
}

// ParseCriteria reads vendor, from and to from query parameters.
func ParseCriteria(q url.Values) (query.Criteria, error) {
	start, err := core.ParseDate(q.Get("from"))
	if err != nil {
		return query.Criteria{}, fmt.Errorf("%w: from: %v", core.ErrValidation, err)
	}
	end, err := core.ParseDate(q.Get("to"))
	if err != nil {
		return query.Criteria{}, fmt.Errorf("%w: to: %v", core.ErrValidation, err)
	}
	return query.Criteria{
		Vendor: stripControl(q.Get("vendor")),
		Start:  start,
		End:    end,
	}, nil
}

// ParseIndex reads the {index} path value.
func ParseIndex(r *http.Request) (int, error) {
	raw := r.PathValue("index")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: record index must be an integer, got %q", errBadRequest, raw)
	}
	return idx, nil
}

// ParseIfMatch returns the ledger version named by an If-Match header,
// without quotes or weak prefix. "*" and an absent header both mean no guard.
func ParseIfMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}

// PriceParams is a price preview request.
type PriceParams struct {
	MilkType core.MilkType
	Fat      float64
	SNF      float64
	Quantity float64
	Rates    core.Rates
}

// ParsePriceParams reads a price preview query. Missing rates fall back to
// defaults; a missing quantity means one litre.
func ParsePriceParams(q url.Values, defaults core.Rates) (PriceParams, error) {
	p := PriceParams{
		MilkType: core.MilkType(strings.ToLower(strings.TrimSpace(q.Get("milkType")))),
		Quantity: 1,
		Rates:    defaults,
	}
	if !p.MilkType.Valid() {
		return PriceParams{}, core.ErrInvalidMilkType
	}

	fields := []struct {
		key string
		dst *float64
	}{
		{"fat", &p.Fat},
		{"snf", &p.SNF},
		{"litreQuantity", &p.Quantity},
		{"cowRate", &p.Rates.Cow},
		{"buffaloRate", &p.Rates.Buffalo},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(q.Get(f.key))
		if raw == "" {
			continue
		}
		v, err := parseNumber(f.key, raw)
		if err != nil {
			return PriceParams{}, err
		}
		*f.dst = v
	}
	return p, nil
}

// Price evaluates the preview.
func (p PriceParams) Price() float64 {
	return core.CalculatePrice(p.Fat, p.SNF, p.MilkType, p.Quantity, p.Rates.Cow, p.Rates.Buffalo)
}

// sanitizeInput strips control characters and surrounding whitespace.
func sanitizeInput(s string) string {
	return stripControl(strings.TrimSpace(s))
}

// stripControl removes control characters other than tab, newline and
// carriage return.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
