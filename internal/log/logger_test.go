package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"Error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentHTTP, Output: &buf})

	l.Info("hidden")
	l.Warn("shown", FieldRecordIndex, 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info entry should be filtered: %s", out)
	}
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "record_index=3") {
		t.Errorf("missing fields: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentWorker).Warn("moved")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("expected worker component: %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := New(Config{Component: ComponentBackend, Output: &bytes.Buffer{}})
	ctx := IntoContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected fallback logger")
	}
}

func TestFields(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentHTTP).
		WithRecord(2, "Ram", "cow", 355).
		WithHTTPResponse(404, 12).
		WithError(errors.New("boom")).
		WithError(nil)

	if f[FieldSuccess] != false || f[FieldVendorName] != "Ram" || f[FieldError] != "boom" {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Errorf("ToSlice length mismatch")
	}
}
