package core

import (
	"testing"
)

func TestDraftValidate(t *testing.T) {
	good := Draft{
		Type:        Expense,
		Amount:      Money{Cents: 100},
		Description: "groceries",
		Category:    "food",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	// Unknown category ids pass validation; the registry is display-only.
	unknown := good
	unknown.Category = "not-in-registry"
	if err := unknown.Validate(); err != nil {
		t.Fatalf("unknown category should be tolerated, got %v", err)
	}

	bads := []Draft{
		{Type: "transfer", Amount: Money{Cents: 1}, Description: "a", Category: "c"},
		{Type: Income, Amount: Money{Cents: 0}, Description: "a", Category: "c"},
		{Type: Income, Amount: Money{Cents: 1}, Description: "  ", Category: "c"},
		{Type: Income, Amount: Money{Cents: 1}, Description: "a", Category: ""},
	}
	for i, d := range bads {
		if err := d.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNewTransactionAssignsIDAndDate(t *testing.T) {
	d := Draft{Type: Income, Amount: Money{Cents: 500}, Description: "pay", Category: "salary"}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tx := NewTransaction(d)
		if tx.ID == "" {
			t.Fatal("expected non-empty id")
		}
		if seen[tx.ID] {
			t.Fatalf("duplicate id %q after %d transactions", tx.ID, i)
		}
		seen[tx.ID] = true
		if tx.Date.IsZero() {
			t.Fatal("expected date to be set")
		}
		if tx.Type != d.Type || tx.Amount != d.Amount || tx.Description != d.Description || tx.Category != d.Category {
			t.Fatal("draft fields should carry over unchanged")
		}
	}
}

func TestLookupCategory(t *testing.T) {
	if c, ok := LookupCategory("food"); !ok || c.Name != "Food & Dining" {
		t.Fatalf("expected food category, got %+v ok=%v", c, ok)
	}
	if c, ok := LookupCategory("salary"); !ok || c.Name != "Salary" {
		t.Fatalf("expected salary category, got %+v ok=%v", c, ok)
	}
	if c, ok := LookupCategory("nope"); ok || c.Name != "Other" {
		t.Fatalf("expected Other fallback, got %+v ok=%v", c, ok)
	}
}
