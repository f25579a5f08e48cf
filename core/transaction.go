// Package core holds the canonical transaction model shared by every
// analysis tool, the simulator, and the agent.
package core

import (
	"strings"
	"time"
)

// ============================================================================
// TRANSACTION MODEL
// ============================================================================

// Transaction is one bank transaction. Internally, Amount is positive
// for money in (income, refunds) and negative for money out; tables
// that arrive with positive spending magnitudes are accepted and
// flipped at ingress (see Normalize).
type Transaction struct {
	Date     time.Time `json:"date"`
	Amount   float64   `json:"amount"`
	Merchant string    `json:"merchant"`
	Category string    `json:"category"`
}

// MonthKey returns the calendar month the transaction falls in, formatted
// as "2006-01". Sorting these strings sorts the months chronologically.
func (t Transaction) MonthKey() string {
	return t.Date.Format("2006-01")
}

// ============================================================================
// CATEGORY SETS
// ============================================================================

// Category names are matched case-insensitively after trimming whitespace.
// These two sets are the single source of truth for essential vs
// discretionary classification across the codebase.
var essentialCategories = map[string]bool{
	"groceries":         true,
	"grocery":           true,
	"rent & housing":    true,
	"health":            true,
	"insurance":         true,
	"bills & utilities": true,
	"education":         true,
}

var discretionaryCategories = map[string]bool{
	"dining":        true,
	"delivery":      true,
	"shopping":      true,
	"entertainment": true,
	"personal care": true,
}

// Categories where charge amounts naturally vary (coffee runs, rideshares),
// so amount consistency alone is weak evidence of a subscription.
var habitCategories = map[string]bool{
	"dining":    true,
	"groceries": true,
	"delivery":  true,
	"shopping":  true,
	"transport": true,
}

// NormalizeCategory lowercases and trims a category label for set lookups.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// IsEssential reports whether the category is a fixed-cost essential.
func IsEssential(category string) bool {
	return essentialCategories[NormalizeCategory(category)]
}

// IsDiscretionary reports whether the category is discretionary spending.
func IsDiscretionary(category string) bool {
	return discretionaryCategories[NormalizeCategory(category)]
}

// IsHabitCategory reports whether the category holds habitual variable
// purchases rather than contract-style charges.
func IsHabitCategory(category string) bool {
	return habitCategories[NormalizeCategory(category)]
}

// IsIncome reports whether the transaction is an income deposit.
func (t Transaction) IsIncome() bool {
	return NormalizeCategory(t.Category) == "income" && t.Amount > 0
}

// IsTransfer reports whether the transaction moves money between the
// user's own accounts.
func (t Transaction) IsTransfer() bool {
	return NormalizeCategory(t.Category) == "transfer"
}

// IsSpending reports whether the transaction counts toward spending
// analyses. Income and transfers are excluded.
func (t Transaction) IsSpending() bool {
	if t.Amount >= 0 {
		return false
	}
	c := NormalizeCategory(t.Category)
	return c != "income" && c != "transfer"
}

// ============================================================================
// TABLE HELPERS
// ============================================================================

// Normalize returns a copy of the table with the internal sign
// convention applied: spending rows carry negative amounts. Bank
// exports and API payloads often list every amount as a positive
// magnitude with direction implied by category, so each ingress path
// runs its table through here before analysis.
func Normalize(txns []Transaction) []Transaction {
	out := make([]Transaction, len(txns))
	copy(out, txns)
	for i := range out {
		t := &out[i]
		c := NormalizeCategory(t.Category)
		if t.Amount > 0 && c != "income" && c != "transfer" {
			t.Amount = -t.Amount
		}
	}
	return out
}

// SpanDays returns the number of days between the earliest and latest
// transaction, inclusive of both endpoints. Empty tables span zero days.
func SpanDays(txns []Transaction) int {
	if len(txns) == 0 {
		return 0
	}
	min, max := txns[0].Date, txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Before(min) {
			min = t.Date
		}
		if t.Date.After(max) {
			max = t.Date
		}
	}
	return int(max.Sub(min).Hours()/24) + 1
}

// Categorized returns the subset of transactions with a non-empty,
// non-"uncategorized" category label.
func Categorized(txns []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txns))
	for _, t := range txns {
		c := NormalizeCategory(t.Category)
		if c == "" || c == "uncategorized" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SpendingCategories returns the distinct spending category labels in the
// table, normalized.
func SpendingCategories(txns []Transaction) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range txns {
		if !t.IsSpending() {
			continue
		}
		c := NormalizeCategory(t.Category)
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
