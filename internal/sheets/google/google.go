package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"milkledger/internal/report"
)

// SinkName identifies the sheet sink in logs and metrics.
const SinkName = "sheets"

// Config selects the target sheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// valuesAPI is the part of the Sheets values API the client needs.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

// Client publishes the full ledger report to one sheet, replacing whatever
// the sheet held before.
type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
}

var _ report.Sink = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Report"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newWithValues(serviceValues{svc: svc}, spreadsheetID, sheetName), nil
}

func newWithValues(v valuesAPI, spreadsheetID, sheetName string) *Client {
	return &Client{values: v, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, inline JSON first, then the file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

func (c *Client) Name() string { return SinkName }

// Publish implements report.Sink.
func (c *Client) Publish(ctx context.Context, rep report.Report) error {
	return c.WriteReport(ctx, rep)
}

// WriteReport clears the report columns and writes header, rows, a blank
// row and the total line from A1 down.
func (c *Client) WriteReport(ctx context.Context, rep report.Report) error {
	if c.values == nil {
		return errors.New("sheets service not initialized")
	}

	sheet := quoteSheet(c.sheetName)
	if err := c.values.Clear(ctx, c.spreadsheetID, sheet+"!A:"+lastColumn); err != nil {
		return fmt.Errorf("clear sheet %s: %w", c.sheetName, err)
	}

	values := reportValues(rep)
	rng := fmt.Sprintf("%s!A1:%s%d", sheet, lastColumn, len(values))
	if err := c.values.Update(ctx, c.spreadsheetID, rng, values); err != nil {
		return fmt.Errorf("write report to %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Report written to Google Sheets",
		"sheet", c.sheetName,
		"rows", len(rep.Rows),
		"total", rep.Total)
	return nil
}

// lastColumn is the sheet column of the final report cell.
var lastColumn = string(rune('A' + report.Columns - 1))

// reportValues lays out a report as sheet rows.
func reportValues(rep report.Report) [][]any {
	values := make([][]any, 0, len(rep.Rows)+3)
	values = append(values, rowValues(rep.Header))
	for _, r := range rep.Rows {
		values = append(values, rowValues(r))
	}
	values = append(values, []any{}, []any{rep.Total})
	return values
}

func rowValues(r report.Row) []any {
	out := make([]any, len(r))
	for i, cell := range r {
		out[i] = cell
	}
	return out
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// serviceValues adapts the generated Sheets client to valuesAPI.
type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}
