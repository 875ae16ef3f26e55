package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	// TransactionType distinguishes money coming in from money going out.
	TransactionType string

	// Transaction is a single ledger entry. Immutable once created: the
	// only ways to change the ledger are delete-by-id and full replace.
	Transaction struct {
		ID          string
		Type        TransactionType
		Amount      Money
		Description string
		Category    string // registry id; unknown ids render as "Other"
		Date        time.Time
	}

	// Draft is a transaction as entered by the user, before the system
	// assigns an id and a timestamp.
	Draft struct {
		Type        TransactionType
		Amount      Money
		Description string
		Category    string
	}
)

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (d Draft) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(d.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	// Category ids are not checked against the registry: unknown ids are
	// tolerated and displayed as "Other" so remote data keeps working.
	if strings.TrimSpace(d.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// NewTransaction materializes a draft: assigns a unique id and stamps the
// current time. Never fails; validation happens on the draft beforehand.
func NewTransaction(d Draft) Transaction {
	return Transaction{
		ID:          uuid.NewString(),
		Type:        d.Type,
		Amount:      d.Amount,
		Description: d.Description,
		Category:    d.Category,
		Date:        time.Now().UTC(),
	}
}
