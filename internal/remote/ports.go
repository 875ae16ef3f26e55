// Package remote defines the port to the durable mirror of the ledger
// and the error taxonomy its adapters report through.
package remote

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/core"
)

// Mirror is a remote copy of the full transaction list. Fetch reads it
// whole, Save overwrites it whole; there is no partial update.
type Mirror interface {
	Fetch(ctx context.Context) ([]core.Transaction, error)
	Save(ctx context.Context, list []core.Transaction) error
}

// ErrorKind classifies mirror failures so the sync client can surface a
// distinct message for each.
type ErrorKind int

const (
	// KindNetwork is a transport-level failure: no usable response.
	KindNetwork ErrorKind = iota + 1
	// KindHTTPStatus is a non-2xx response.
	KindHTTPStatus
	// KindBadBody is a response body that is not parseable as JSON.
	KindBadBody
	// KindScriptError is an explicit {"error": ...} reported by the
	// remote script.
	KindScriptError
	// KindBadSchema is parseable JSON that is not a valid transaction
	// array.
	KindBadSchema
)

// Error wraps a mirror failure with its classification.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification from an error chain. Unclassified
// errors count as network failures, the most generic bucket.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindNetwork
}
