// Package agent is the decision-making layer. It inspects the data,
// plans which tools can run, executes the plan concurrently, and
// synthesizes the outputs into ranked insights. This is what makes Sift
// adaptive; the pipeline shapes itself to the table instead of running
// fixed.
package agent

import (
	"time"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// DATA PROFILE
// ============================================================================

// Trend labels the direction of recent monthly spending.
type Trend string

const (
	TrendRising       Trend = "gradually rising"
	TrendDeclining    Trend = "gradually declining"
	TrendStable       Trend = "stable"
	TrendInsufficient Trend = "insufficient data"
)

// MonthAmount pairs a month label with its spending total.
type MonthAmount struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// SwingCategory is the category whose monthly totals range the widest.
type SwingCategory struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Profile summarizes a transaction table: what is in it and whether it
// is rich enough for each analysis tool.
type Profile struct {
	TransactionCount int      `json:"transaction_count"`
	DateRangeDays    int      `json:"date_range_days"`
	CategoryCount    int      `json:"category_count"`
	Categories       []string `json:"categories"`
	HasIncome        bool     `json:"has_income"`
	StartDate        string   `json:"start_date,omitempty"`
	EndDate          string   `json:"end_date,omitempty"`

	TotalSpent           float64       `json:"total_spent"`
	MonthlyTotals        []float64     `json:"monthly_totals"`
	MonthsCount          int           `json:"months_count"`
	MonthlyAverage       float64       `json:"monthly_average"`
	MonthlyIncome        float64       `json:"monthly_income"`
	HighestMonth         MonthAmount   `json:"highest_month"`
	LowestMonth          MonthAmount   `json:"lowest_month"`
	Recent3MoAvg         float64       `json:"recent_3mo_avg"`
	SpendingTrend        Trend         `json:"spending_trend"`
	BiggestSwingCategory SwingCategory `json:"biggest_swing_category"`
}

// BuildProfile computes the profile for a table. An empty table yields
// a zero profile with TrendInsufficient, not an error.
func BuildProfile(txns []core.Transaction) *Profile {
	p := &Profile{
		SpendingTrend:        TrendInsufficient,
		HighestMonth:         MonthAmount{Month: "N/A"},
		LowestMonth:          MonthAmount{Month: "N/A"},
		BiggestSwingCategory: SwingCategory{Name: "N/A"},
	}
	if len(txns) == 0 {
		return p
	}
	txns = core.Normalize(txns)

	p.TransactionCount = len(txns)
	p.DateRangeDays = core.SpanDays(txns)
	p.Categories = core.SpendingCategories(txns)
	p.CategoryCount = len(p.Categories)

	min, max := txns[0].Date, txns[0].Date
	for _, t := range txns {
		if t.Date.Before(min) {
			min = t.Date
		}
		if t.Date.After(max) {
			max = t.Date
		}
		if t.IsIncome() {
			p.HasIncome = true
		}
	}
	p.StartDate = min.Format("2006-01-02")
	p.EndDate = max.Format("2006-01-02")

	pivot := core.NewPivot(txns)
	totals := pivot.MonthTotals()
	p.MonthlyTotals = totals
	p.MonthsCount = len(totals)
	for _, v := range totals {
		p.TotalSpent += v
	}
	if len(totals) > 0 {
		p.MonthlyAverage = p.TotalSpent / float64(len(totals))
		hi, lo := 0, 0
		for i, v := range totals {
			if v > totals[hi] {
				hi = i
			}
			if v < totals[lo] {
				lo = i
			}
		}
		p.HighestMonth = MonthAmount{Month: monthLabel(pivot.Months[hi]), Amount: totals[hi]}
		p.LowestMonth = MonthAmount{Month: monthLabel(pivot.Months[lo]), Amount: totals[lo]}
	}

	income := core.MonthlyIncome(txns)
	if len(income) > 0 {
		var total float64
		for _, v := range income {
			total += v
		}
		p.MonthlyIncome = total / float64(len(income))
	}

	p.Recent3MoAvg = p.MonthlyAverage
	if len(totals) >= 3 {
		p.Recent3MoAvg = meanOf(totals[len(totals)-3:])
	}
	if len(totals) >= 2 {
		recent := meanOf(tail(totals, 3))
		earlier := meanOf(head(totals, 3))
		switch {
		case recent > earlier*1.1:
			p.SpendingTrend = TrendRising
		case recent < earlier*0.9:
			p.SpendingTrend = TrendDeclining
		default:
			p.SpendingTrend = TrendStable
		}
	}

	var bestSwing float64
	for _, cat := range pivot.Categories {
		col := pivot.Column(cat)
		lo, hi := col[0], col[0]
		for _, v := range col {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > bestSwing {
			bestSwing = hi - lo
			p.BiggestSwingCategory = SwingCategory{Name: cat, Min: lo, Max: hi}
		}
	}
	return p
}

func monthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("Jan")
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func head(vals []float64, n int) []float64 {
	if len(vals) < n {
		n = len(vals)
	}
	return vals[:n]
}

func tail(vals []float64, n int) []float64 {
	if len(vals) < n {
		n = len(vals)
	}
	return vals[len(vals)-n:]
}
