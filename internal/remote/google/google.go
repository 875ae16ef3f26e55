// Package google mirrors the ledger straight into a Google Sheets
// worksheet through the Sheets API, as an alternative to the webhook
// endpoint. One row per transaction, columns A:F =
// id, type, amount, description, category, date.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tally/internal/core"
	"tally/internal/remote"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ remote.Mirror = (*Client)(nil)

var headerRow = []any{"id", "type", "amount", "description", "category", "date"}

// NewFromEnv creates a Sheets mirror from environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Optional: GOOGLE_SHEET_NAME (default
// "Transactions") plus service-account credentials via
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Fetch reads every data row below the header and decodes it.
func (c *Client) Fetch(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, &remote.Error{Kind: remote.KindNetwork, Detail: "sheets service not initialized"}
	}

	rng := fmt.Sprintf("%s!A2:F", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, &remote.Error{Kind: remote.KindNetwork, Detail: "read sheet values", Err: err}
	}

	list, err := parseRows(resp.Values)
	if err != nil {
		return nil, &remote.Error{Kind: remote.KindBadSchema, Detail: "sheet data is malformed", Err: err}
	}

	slog.DebugContext(ctx, "Fetched transactions from sheet",
		"sheet", c.sheetName, "count", len(list))
	return list, nil
}

// Save overwrites the worksheet with the full list: clear the data
// range, rewrite the header, then write one row per transaction.
func (c *Client) Save(ctx context.Context, list []core.Transaction) error {
	if c.svc == nil {
		return &remote.Error{Kind: remote.KindNetwork, Detail: "sheets service not initialized"}
	}

	clearRng := fmt.Sprintf("%s!A1:F", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return &remote.Error{Kind: remote.KindNetwork, Detail: "clear sheet", Err: err}
	}

	values := make([][]any, 0, len(list)+1)
	values = append(values, headerRow)
	for _, t := range list {
		values = append(values, rowValues(t))
	}

	writeRng := fmt.Sprintf("%s!A1", c.sheetName)
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, writeRng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return &remote.Error{Kind: remote.KindNetwork, Detail: "write sheet values", Err: err}
	}

	slog.DebugContext(ctx, "Wrote transactions to sheet",
		"sheet", c.sheetName, "count", len(list))
	return nil
}
