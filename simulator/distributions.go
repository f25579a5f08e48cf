// Package simulator projects spending forward with Monte Carlo sampling
// and answers preset stress scenarios. No network, no LLM calls.
package simulator

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// DISTRIBUTION FITTING
// ============================================================================

// Dist is the fitted Normal for one category's monthly spending.
type Dist struct {
	Category string  `json:"category"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
}

// FittedSet holds per-category distributions plus the observed monthly
// income average. Categories are sorted by name so sampling order is
// deterministic under a fixed seed.
type FittedSet struct {
	Dists         []Dist  `json:"distributions"`
	MonthlyIncome float64 `json:"monthly_income"`
	Months        int     `json:"months"`
}

// Fit builds per-category Normal(mean, std) distributions from monthly
// spending history. With a single observed month there is no sample
// variance, so std is synthesized as 15% of the mean. Std is floored at
// 1.0 so flat histories still produce non-degenerate samples.
func Fit(txns []core.Transaction) *FittedSet {
	pivot := core.NewPivot(core.Normalize(txns))
	set := &FittedSet{Months: len(pivot.Months)}

	for _, cat := range pivot.Categories {
		col := pivot.Column(cat)
		mean := stat.Mean(col, nil)
		if mean <= 0 {
			continue
		}
		var std float64
		if len(col) > 1 {
			std = stat.StdDev(col, nil)
		} else {
			std = mean * 0.15
		}
		if std < 1.0 {
			std = 1.0
		}
		set.Dists = append(set.Dists, Dist{Category: cat, Mean: mean, Std: std})
	}

	income := core.MonthlyIncome(txns)
	if len(income) > 0 {
		var total float64
		for _, v := range income {
			total += v
		}
		set.MonthlyIncome = total / float64(len(income))
	}

	sort.Slice(set.Dists, func(i, j int) bool { return set.Dists[i].Category < set.Dists[j].Category })
	return set
}

// Clone deep-copies the set so scenarios can mutate it freely.
func (s *FittedSet) Clone() *FittedSet {
	out := &FittedSet{MonthlyIncome: s.MonthlyIncome, Months: s.Months}
	out.Dists = append([]Dist(nil), s.Dists...)
	return out
}

// Lookup returns the distribution for a category, matched
// case-insensitively.
func (s *FittedSet) Lookup(category string) (Dist, bool) {
	want := core.NormalizeCategory(category)
	for _, d := range s.Dists {
		if core.NormalizeCategory(d.Category) == want {
			return d, true
		}
	}
	return Dist{}, false
}

// MeanSpending is the expected total monthly spend across all categories.
func (s *FittedSet) MeanSpending() float64 {
	var total float64
	for _, d := range s.Dists {
		total += d.Mean
	}
	return total
}

// FixedCosts sums the means of essential categories plus subscriptions,
// the charges that keep arriving regardless of behavior.
func (s *FittedSet) FixedCosts() float64 {
	var total float64
	for _, d := range s.Dists {
		c := core.NormalizeCategory(d.Category)
		if core.IsEssential(c) || c == "subscriptions" {
			total += d.Mean
		}
	}
	return total
}
