package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// The wire shape shared by the remote endpoint contract and the persisted
// snapshot: a JSON array of objects with exactly these scalar fields.
type wireTransaction struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

// ErrNotArray reports a payload that is valid JSON but not an array.
var ErrNotArray = errors.New("payload is not a transaction array")

// DecodeError pinpoints the first element and field that failed shape
// validation, so every rejection reason is distinguishable.
type DecodeError struct {
	Index  int
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("transaction %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("transaction %d: field %q %s", e.Index, e.Field, e.Reason)
}

// Timestamp layouts accepted for the date field, in the order tried.
// RFC 3339 covers locally-created entries; the rest tolerate what
// spreadsheet scripts tend to emit.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseWireDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecodeTransactions validates and decodes an externally-sourced JSON
// array of transactions. It returns ErrNotArray when the payload is not
// an array, or a *DecodeError naming the first offending element. Amounts
// are only shape-checked (numeric): imported data is accepted as-is.
func DecodeTransactions(data []byte) ([]Transaction, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, ErrNotArray
	}
	out := make([]Transaction, 0, len(elems))
	for i, raw := range elems {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, &DecodeError{Index: i, Reason: "is not an object"}
		}

		id, err := stringField(obj, i, "id")
		if err != nil {
			return nil, err
		}
		typ, err := stringField(obj, i, "type")
		if err != nil {
			return nil, err
		}
		if !TransactionType(typ).Valid() {
			return nil, &DecodeError{Index: i, Field: "type", Reason: "is not a known transaction type"}
		}

		amountRaw, ok := obj["amount"]
		if !ok {
			return nil, &DecodeError{Index: i, Field: "amount", Reason: "is missing"}
		}
		var amount float64
		if err := json.Unmarshal(amountRaw, &amount); err != nil {
			return nil, &DecodeError{Index: i, Field: "amount", Reason: "is not a number"}
		}

		description, err := stringField(obj, i, "description")
		if err != nil {
			return nil, err
		}
		category, err := stringField(obj, i, "category")
		if err != nil {
			return nil, err
		}
		dateStr, err := stringField(obj, i, "date")
		if err != nil {
			return nil, err
		}
		date, ok := parseWireDate(dateStr)
		if !ok {
			return nil, &DecodeError{Index: i, Field: "date", Reason: "is not a valid timestamp"}
		}

		out = append(out, Transaction{
			ID:          id,
			Type:        TransactionType(typ),
			Amount:      FromDollars(amount),
			Description: description,
			Category:    category,
			Date:        date,
		})
	}
	return out, nil
}

func stringField(obj map[string]json.RawMessage, index int, field string) (string, *DecodeError) {
	raw, ok := obj[field]
	if !ok {
		return "", &DecodeError{Index: index, Field: field, Reason: "is missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &DecodeError{Index: index, Field: field, Reason: "is not a string"}
	}
	return s, nil
}

// EncodeTransactions marshals the list into the wire shape. Dates are
// emitted as RFC 3339 UTC so any consumer can round-trip them.
func EncodeTransactions(list []Transaction) ([]byte, error) {
	wire := make([]wireTransaction, len(list))
	for i, t := range list {
		wire[i] = wireTransaction{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount.Dollars(),
			Description: t.Description,
			Category:    t.Category,
			Date:        t.Date.UTC().Format(time.RFC3339),
		}
	}
	return json.Marshal(wire)
}
