package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
)

// Timestamp layouts accepted from sheet cells. Dates typed by hand in
// the sheet tend to lose their time component.
var cellDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseRows converts the values matrix returned by the Sheets API into
// transactions. Empty rows are skipped; any non-empty row that cannot be
// decoded fails the whole fetch.
func parseRows(values [][]any) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(values))
	for i, row := range values {
		if isEmptyRow(row) {
			continue
		}
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns, got %d", i+2, len(row))
		}

		id := cellString(row[0])
		if id == "" {
			return nil, fmt.Errorf("row %d: empty id", i+2)
		}
		typ := core.TransactionType(cellString(row[1]))
		if !typ.Valid() {
			return nil, fmt.Errorf("row %d: unknown type %q", i+2, cellString(row[1]))
		}
		amount, err := cellAmount(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		date, err := cellDate(row[5])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		out = append(out, core.Transaction{
			ID:          id,
			Type:        typ,
			Amount:      amount,
			Description: cellString(row[3]),
			Category:    cellString(row[4]),
			Date:        date,
		})
	}
	return out, nil
}

func rowValues(t core.Transaction) []any {
	return []any{
		t.ID,
		string(t.Type),
		t.Amount.Dollars(),
		t.Description,
		t.Category,
		t.Date.UTC().Format(time.RFC3339),
	}
}

func isEmptyRow(row []any) bool {
	for _, cell := range row {
		if strings.TrimSpace(cellString(cell)) != "" {
			return false
		}
	}
	return true
}

func cellString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// cellAmount accepts both numeric cells and text cells; sheets flip
// between the two depending on cell formatting.
func cellAmount(v any) (core.Money, error) {
	switch n := v.(type) {
	case float64:
		return core.FromDollars(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(n, ",", ".")), 64)
		if err != nil {
			return core.Money{}, fmt.Errorf("amount %q is not a number", n)
		}
		return core.FromDollars(f), nil
	default:
		return core.Money{}, fmt.Errorf("amount cell has unexpected type %T", v)
	}
}

func cellDate(v any) (time.Time, error) {
	s := strings.TrimSpace(cellString(v))
	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not a valid timestamp", s)
}
