package core

import (
	"sort"
	"time"
)

// SavingsRate is the share of monthly income set as the savings goal.
const SavingsRate = 0.15

type (
	// Totals are the ledger-wide aggregates. Balance is always
	// Income - Expenses, including for an empty ledger.
	Totals struct {
		Income   Money
		Expenses Money
		Balance  Money
	}

	// CategoryAmount is one slice of the expense breakdown, already
	// resolved to display metadata.
	CategoryAmount struct {
		CategoryID string
		Name       string
		Color      string
		Amount     Money
	}

	// Savings describes progress toward the monthly savings goal.
	Savings struct {
		Goal    Money
		Saved   Money
		Percent float64 // always in [0, 100]
	}
)

// ComputeTotals sums the full list, filtered by type.
func ComputeTotals(list []Transaction) Totals {
	var income, expenses int64
	for _, t := range list {
		switch t.Type {
		case Income:
			income += t.Amount.Cents
		case Expense:
			expenses += t.Amount.Cents
		}
	}
	return Totals{
		Income:   Money{Cents: income},
		Expenses: Money{Cents: expenses},
		Balance:  Money{Cents: income - expenses},
	}
}

// MonthTotals restricts the sums to transactions dated in the calendar
// month and year of now.
func MonthTotals(list []Transaction, now time.Time) Totals {
	year, month := now.Year(), now.Month()
	var monthly []Transaction
	for _, t := range list {
		d := t.Date.In(now.Location())
		if d.Year() == year && d.Month() == month {
			monthly = append(monthly, t)
		}
	}
	return ComputeTotals(monthly)
}

// CategoryBreakdown groups expense transactions by category, resolves
// display name and color (unknown ids fall back to Other), and sorts
// descending by summed amount. Ties keep first-seen order. An input with
// no expenses yields an empty breakdown.
func CategoryBreakdown(list []Transaction) []CategoryAmount {
	sums := make(map[string]int64)
	var order []string
	for _, t := range list {
		if t.Type != Expense {
			continue
		}
		if _, seen := sums[t.Category]; !seen {
			order = append(order, t.Category)
		}
		sums[t.Category] += t.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(order))
	for _, id := range order {
		cat := ExpenseCategoryOrOther(id)
		out = append(out, CategoryAmount{
			CategoryID: id,
			Name:       cat.Name,
			Color:      cat.Color,
			Amount:     Money{Cents: sums[id]},
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// ComputeSavings derives the monthly savings goal from current-month
// income and expenses. Percent is clamped to [0, 100] and is 0 whenever
// the goal is zero.
func ComputeSavings(income, expenses Money) Savings {
	goal := Money{Cents: int64(float64(income.Cents)*SavingsRate + 0.5)}
	savedCents := income.Cents - expenses.Cents
	if savedCents < 0 {
		savedCents = 0
	}
	saved := Money{Cents: savedCents}
	var percent float64
	if goal.Cents > 0 {
		percent = float64(saved.Cents) / float64(goal.Cents) * 100
		if percent > 100 {
			percent = 100
		}
	}
	return Savings{Goal: goal, Saved: saved, Percent: percent}
}
