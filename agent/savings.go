package agent

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// SAVINGS PLAN
// ============================================================================

// SavingsPlan is the ranked list of concrete opportunities. Computed
// entirely from the data; no LLM call.
type SavingsPlan struct {
	TotalAnnualSavings float64                   `json:"total_annual_savings"`
	Opportunities      []core.SavingsOpportunity `json:"opportunities"`
}

// savingsThresholds are the adaptive floors for suggesting a cut.
type savingsThresholds struct {
	minMonthly float64
	cutPct     float64
	minAnnual  float64
}

// computeThresholds anchors suggestions to the 50/30/20 rule: target
// saving 20% of income. The further below 20% the user sits, the more
// aggressive the suggested cut, clamped to 10-20% so suggestions stay
// realistic. Floors scale with income so a $50/mo category matters for
// one user and is noise for another.
func computeThresholds(profile *Profile) savingsThresholds {
	base := profile.MonthlyIncome
	if base <= 0 {
		base = profile.MonthlyAverage
	}
	if base <= 0 {
		return savingsThresholds{minMonthly: 10, cutPct: 0.15, minAnnual: 20}
	}

	minMonthly := clamp(math.Round(base*0.02), 10, 50)

	cutPct := 0.15
	if profile.MonthlyIncome > 0 {
		savingsRate := (profile.MonthlyIncome - profile.MonthlyAverage) / profile.MonthlyIncome
		if savingsRate < 0 {
			savingsRate = 0
		}
		cutPct = clamp(0.30-savingsRate, 0.10, 0.20)
	}

	minAnnual := clamp(math.Round(base*12*0.005), 20, 100)

	return savingsThresholds{minMonthly: minMonthly, cutPct: cutPct, minAnnual: minAnnual}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// GenerateSavingsPlan derives up to five savings opportunities from the
// tool outputs: subscription overlaps, price creep above a $10/yr
// floor, and cuts to the discretionary categories driving spending. If
// the impact model never ran, discretionary opportunities are derived
// straight from the transaction table instead.
func GenerateSavingsPlan(txns []core.Transaction, outputs *ToolOutputs, profile *Profile) *SavingsPlan {
	if profile == nil {
		profile = BuildProfile(txns)
	}
	thresh := computeThresholds(profile)

	var opportunities []core.SavingsOpportunity

	if subs := outputs.Subscriptions; subs != nil {
		for _, overlap := range subs.Overlaps {
			if overlap.PotentialSavings <= 0 {
				continue
			}
			var merchants []string
			for _, m := range overlap.Subscriptions {
				merchants = append(merchants, m.Merchant)
			}
			opportunities = append(opportunities, core.SavingsOpportunity{
				Kind:          "consolidate",
				Description:   fmt.Sprintf("Consolidate %s subscriptions: %d overlapping services at $%.0f/yr combined", overlap.Category, overlap.Count, overlap.CombinedAnnual),
				Category:      overlap.Category,
				Merchants:     merchants,
				MonthlyAmount: round2s(overlap.PotentialSavings / 12),
				AnnualAmount:  round2s(overlap.PotentialSavings),
			})
		}
		for _, pc := range subs.PriceCreep {
			if pc.AnnualCostIncrease <= 10 {
				continue
			}
			opportunities = append(opportunities, core.SavingsOpportunity{
				Kind:          "price_creep",
				Description:   fmt.Sprintf("%s price increase: was $%.2f/mo, now $%.2f/mo", pc.Merchant, pc.OriginalPrice, pc.CurrentPrice),
				Merchants:     []string{pc.Merchant},
				MonthlyAmount: round2s(pc.AnnualCostIncrease / 12),
				AnnualAmount:  round2s(pc.AnnualCostIncrease),
			})
		}
	}

	haveDiscretionary := false
	if outputs.Impact != nil && outputs.Impact.Valid {
		for _, imp := range outputs.Impact.Impacts {
			if !core.IsDiscretionary(imp.Category) || imp.MonthlyAvg < thresh.minMonthly {
				continue
			}
			annual := round2s(imp.MonthlyAvg * thresh.cutPct * 12)
			if annual < thresh.minAnnual {
				continue
			}
			merchants := topMerchants(txns, imp.Category, 3)
			opportunities = append(opportunities, core.SavingsOpportunity{
				Kind: "category_cut",
				Description: fmt.Sprintf("Reduce %s by %d%%: currently $%.0f/mo. Top: %s",
					imp.Category, int(thresh.cutPct*100), imp.MonthlyAvg, strings.Join(merchants, ", ")),
				Category:      imp.Category,
				Merchants:     merchants,
				MonthlyAmount: round2s(imp.MonthlyAvg * thresh.cutPct),
				AnnualAmount:  annual,
			})
			haveDiscretionary = true
		}
	}

	// fallback: derive discretionary cuts from the raw table when the
	// impact model produced nothing usable
	if len(opportunities) == 0 && !haveDiscretionary && len(txns) > 0 {
		months := float64(core.SpanDays(txns)) / 30.0
		if months < 1 {
			months = 1
		}
		catTotals := map[string]float64{}
		for _, t := range txns {
			if t.IsSpending() && core.IsDiscretionary(t.Category) {
				catTotals[core.NormalizeCategory(t.Category)] += -t.Amount
			}
		}
		var cats []string
		for c := range catTotals {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return catTotals[cats[i]] > catTotals[cats[j]] })

		for _, cat := range cats {
			monthlyAvg := catTotals[cat] / months
			if monthlyAvg < thresh.minMonthly {
				continue
			}
			annual := round2s(monthlyAvg * thresh.cutPct * 12)
			if annual < thresh.minAnnual {
				continue
			}
			merchants := topMerchants(txns, cat, 3)
			opportunities = append(opportunities, core.SavingsOpportunity{
				Kind: "category_cut",
				Description: fmt.Sprintf("Reduce %s by %d%%: currently ~$%.0f/mo. Top: %s",
					cat, int(thresh.cutPct*100), monthlyAvg, strings.Join(merchants, ", ")),
				Category:      cat,
				Merchants:     merchants,
				MonthlyAmount: round2s(monthlyAvg * thresh.cutPct),
				AnnualAmount:  annual,
			})
		}
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].AnnualAmount > opportunities[j].AnnualAmount
	})
	if len(opportunities) > 5 {
		opportunities = opportunities[:5]
	}

	plan := &SavingsPlan{Opportunities: opportunities}
	for _, o := range opportunities {
		plan.TotalAnnualSavings += o.AnnualAmount
	}
	plan.TotalAnnualSavings = round2s(plan.TotalAnnualSavings)
	return plan
}

// topMerchants returns the n merchants with the highest total spend in
// a category.
func topMerchants(txns []core.Transaction, category string, n int) []string {
	want := core.NormalizeCategory(category)
	totals := map[string]float64{}
	for _, t := range txns {
		if t.IsSpending() && core.NormalizeCategory(t.Category) == want {
			totals[t.Merchant] += -t.Amount
		}
	}
	merchants := make([]string, 0, len(totals))
	for m := range totals {
		merchants = append(merchants, m)
	}
	sort.Slice(merchants, func(i, j int) bool {
		if totals[merchants[i]] != totals[merchants[j]] {
			return totals[merchants[i]] > totals[merchants[j]]
		}
		return merchants[i] < merchants[j]
	})
	if len(merchants) > n {
		merchants = merchants[:n]
	}
	return merchants
}

func round2s(v float64) float64 {
	return math.Round(v*100) / 100
}
