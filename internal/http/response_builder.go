// Package http provides the ledger's HTTP API.
//
// This file builds JSON responses and maps domain errors to status codes.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"milkledger/internal/core"
	"milkledger/internal/ledger"
	"milkledger/internal/log"
	"milkledger/internal/report"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a builder with a default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Version sets the ETag to a ledger version. An empty version is ignored.
func (b *JSONResponseBuilder) Version(v string) *JSONResponseBuilder {
	if v != "" {
		b.headers["ETag"] = `"` + v + `"`
	}
	return b
}

func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Send writes headers, status and the encoded body. The body is encoded
// before anything is written, so an unencodable value becomes a 500.
func (b *JSONResponseBuilder) Send(w http.ResponseWriter) error {
	var body bytes.Buffer
	if b.data != nil {
		if err := json.NewEncoder(&body).Encode(b.data); err != nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error"}` + "\n"))
			return fmt.Errorf("encode response: %w", err)
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, err := w.Write(body.Bytes())
	return err
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// ErrorResponse writes a JSON error with the given status.
func ErrorResponse(w http.ResponseWriter, status int, message string) {
	_ = NewJSONResponse().Status(status).Data(ErrorBody{Error: message}).Send(w)
}

// statusFor maps an error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, errBadRequest), errors.Is(err, report.ErrUnknownFormat):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, ledger.ErrIndexOutOfRange):
		return http.StatusNotFound, "record not found"
	case errors.Is(err, report.ErrEmptyReport):
		return http.StatusNotFound, report.EmptyMessage
	case errors.Is(err, ledger.ErrStaleVersion):
		return http.StatusConflict, "ledger changed since it was read; reload and retry"
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError logs server-side failures and writes the mapped error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", "path", r.URL.Path, "status_code", status, "error", err)
	}
	ErrorResponse(w, status, msg)
}
