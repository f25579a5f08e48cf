package core

import "sort"

// ============================================================================
// MONTHLY PIVOT
// ============================================================================

// Pivot is a month-by-category table of absolute spending totals. Months
// are sorted chronologically and every category has an entry (zero-filled)
// for every month, so column slices line up for correlation and variance
// work.
type Pivot struct {
	Months     []string
	Categories []string
	totals     map[string]map[string]float64 // month -> category -> total
}

// NewPivot builds a monthly spending pivot from a transaction table.
// Income and transfers are excluded; amounts are recorded as positive
// spend.
func NewPivot(txns []Transaction) *Pivot {
	monthSet := map[string]bool{}
	catSet := map[string]bool{}
	totals := map[string]map[string]float64{}
	for _, t := range txns {
		if !t.IsSpending() {
			continue
		}
		month := t.MonthKey()
		cat := NormalizeCategory(t.Category)
		monthSet[month] = true
		catSet[cat] = true
		if totals[month] == nil {
			totals[month] = map[string]float64{}
		}
		totals[month][cat] += -t.Amount
	}

	p := &Pivot{totals: totals}
	for m := range monthSet {
		p.Months = append(p.Months, m)
	}
	for c := range catSet {
		p.Categories = append(p.Categories, c)
	}
	sort.Strings(p.Months)
	sort.Strings(p.Categories)
	return p
}

// Column returns the per-month spending series for one category, aligned
// with Months and zero-filled.
func (p *Pivot) Column(category string) []float64 {
	col := make([]float64, len(p.Months))
	for i, m := range p.Months {
		col[i] = p.totals[m][category]
	}
	return col
}

// Total returns one cell of the pivot.
func (p *Pivot) Total(month, category string) float64 {
	return p.totals[month][category]
}

// MonthTotals returns overall spending per month, aligned with Months.
func (p *Pivot) MonthTotals() []float64 {
	out := make([]float64, len(p.Months))
	for i, m := range p.Months {
		for _, v := range p.totals[m] {
			out[i] += v
		}
	}
	return out
}

// MonthlyIncome returns per-month income totals keyed by month.
func MonthlyIncome(txns []Transaction) map[string]float64 {
	out := map[string]float64{}
	for _, t := range txns {
		if t.IsIncome() {
			out[t.MonthKey()] += t.Amount
		}
	}
	return out
}
