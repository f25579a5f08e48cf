package tools

import (
	"sort"
	"strings"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// RECURRING CHARGES
// ============================================================================

// RecurringCharge is one detected subscription-style charge.
type RecurringCharge struct {
	Merchant   string  `json:"merchant"`
	Category   string  `json:"category"`
	Frequency  string  `json:"frequency"` // "monthly", "biweekly", "yearly"
	DayOfMonth int     `json:"day_of_month"`
	Amount     float64 `json:"amount"`
	AnnualCost float64 `json:"annual_cost"`
	Confidence float64 `json:"confidence"`
	Charges    int     `json:"n_charges"`
}

// DetectRecurringCharges finds merchants charging a consistent amount on
// a regular interval. Amount variance up to 35% of the mean is accepted
// to catch tiered and usage-based subscriptions (phone bills, cloud
// services). Regular timing alone is not enough in habit categories;
// someone buying coffee every ~30 days is a habit, so those need
// near-identical amounts (CV <= 0.10) to count.
func DetectRecurringCharges(txns []core.Transaction) []RecurringCharge {
	type group struct {
		dates    []int64 // unix days, sorted later
		amounts  []float64
		category string
		days     []int
	}
	byMerchant := map[string]*group{}
	var order []string
	for _, t := range txns {
		if !t.IsSpending() {
			continue
		}
		g := byMerchant[t.Merchant]
		if g == nil {
			g = &group{category: t.Category}
			byMerchant[t.Merchant] = g
			order = append(order, t.Merchant)
		}
		g.dates = append(g.dates, t.Date.Unix()/86400)
		g.amounts = append(g.amounts, -t.Amount)
		g.days = append(g.days, t.Date.Day())
	}
	sort.Strings(order)

	var results []RecurringCharge
	for _, merchant := range order {
		g := byMerchant[merchant]
		if len(g.amounts) < 2 {
			continue
		}
		meanAmount := mean(g.amounts)
		if meanAmount < 3 {
			continue
		}
		amountCV := stddev(g.amounts) / meanAmount
		if amountCV > 0.35 {
			continue
		}

		sort.Slice(g.dates, func(i, j int) bool { return g.dates[i] < g.dates[j] })
		gaps := make([]float64, 0, len(g.dates)-1)
		for i := 1; i < len(g.dates); i++ {
			gaps = append(gaps, float64(g.dates[i]-g.dates[i-1]))
		}
		avgGap := mean(gaps)
		gapStd := stddev(gaps)

		var frequency string
		switch {
		case avgGap >= 25 && avgGap <= 35 && gapStd < 5:
			frequency = "monthly"
		case avgGap >= 350 && avgGap <= 380:
			frequency = "yearly"
		case avgGap >= 12 && avgGap <= 16:
			frequency = "biweekly"
		default:
			continue
		}

		if core.IsHabitCategory(g.category) && amountCV > 0.10 {
			continue
		}

		dayCounts := map[int]int{}
		for _, d := range g.days {
			dayCounts[d]++
		}
		dayOfMonth, best := 0, 0
		for d, n := range dayCounts {
			if n > best || (n == best && d < dayOfMonth) {
				dayOfMonth, best = d, n
			}
		}

		n := len(g.amounts)
		var confidence float64
		switch {
		case n >= 3 && amountCV <= 0.05:
			confidence = 0.95
		case n >= 3 && amountCV <= 0.10:
			confidence = 0.90
		case n >= 3:
			confidence = 0.80
		default:
			confidence = 0.70
		}

		perYear := 1.0
		if frequency == "monthly" {
			perYear = 12
		} else if frequency == "biweekly" {
			perYear = 26
		}

		results = append(results, RecurringCharge{
			Merchant:   merchant,
			Category:   g.category,
			Frequency:  frequency,
			DayOfMonth: dayOfMonth,
			Amount:     round2(meanAmount),
			AnnualCost: round2(meanAmount * perYear),
			Confidence: confidence,
			Charges:    n,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].AnnualCost > results[j].AnnualCost })
	return results
}

// ============================================================================
// PRICE CREEP
// ============================================================================

// PricePoint is one month's average charge for a merchant.
type PricePoint struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// PriceCreep tracks how a recurring merchant's price moved over time.
type PriceCreep struct {
	Merchant           string       `json:"merchant"`
	Detected           bool         `json:"price_creep_detected"`
	Reason             string       `json:"reason,omitempty"`
	PriceHistory       []PricePoint `json:"price_history,omitempty"`
	OriginalPrice      float64      `json:"original_price,omitempty"`
	CurrentPrice       float64      `json:"current_price,omitempty"`
	TotalIncreasePct   float64      `json:"total_increase_pct,omitempty"`
	AnnualCostIncrease float64      `json:"annual_cost_increase,omitempty"`
}

// DetectPriceCreep compares a merchant's first and latest monthly
// charge. Needs 3+ charges to say anything.
func DetectPriceCreep(txns []core.Transaction, merchant string) *PriceCreep {
	want := strings.ToUpper(merchant)
	months := map[string][]float64{}
	var keys []string
	n := 0
	for _, t := range txns {
		if !t.IsSpending() || strings.ToUpper(t.Merchant) != want {
			continue
		}
		n++
		key := t.MonthKey()
		if _, ok := months[key]; !ok {
			keys = append(keys, key)
		}
		months[key] = append(months[key], -t.Amount)
	}
	if n < 3 {
		return &PriceCreep{Merchant: merchant, Reason: "not enough history"}
	}
	sort.Strings(keys)

	history := make([]PricePoint, len(keys))
	for i, k := range keys {
		history[i] = PricePoint{Month: k, Amount: round2(mean(months[k]))}
	}
	original := history[0].Amount
	current := history[len(history)-1].Amount
	if original == 0 {
		return &PriceCreep{Merchant: merchant, Reason: "original price is 0"}
	}
	increasePct := (current - original) / original * 100
	if increasePct <= 0 {
		return &PriceCreep{Merchant: merchant, Reason: "no price increase"}
	}
	return &PriceCreep{
		Merchant:           merchant,
		Detected:           true,
		PriceHistory:       history,
		OriginalPrice:      original,
		CurrentPrice:       current,
		TotalIncreasePct:   round1(increasePct),
		AnnualCostIncrease: round2((current - original) * 12),
	}
}

// ============================================================================
// SUBSCRIPTION OVERLAP
// ============================================================================

// OverlapMember names one subscription inside an overlap group.
type OverlapMember struct {
	Merchant string  `json:"merchant"`
	Annual   float64 `json:"annual"`
}

// Overlap is two or more subscriptions in the same non-essential
// category. PotentialSavings assumes keeping only the cheapest.
type Overlap struct {
	Category         string          `json:"category"`
	Subscriptions    []OverlapMember `json:"subscriptions"`
	Count            int             `json:"count"`
	CombinedAnnual   float64         `json:"combined_annual"`
	PotentialSavings float64         `json:"potential_savings"`
}

// DetectSubscriptionOverlap groups recurring charges by category and
// flags categories holding 2+. Essential categories are skipped; two
// utility bills or insurance policies are normal, not overlap.
func DetectSubscriptionOverlap(recurring []RecurringCharge) []Overlap {
	byCategory := map[string][]RecurringCharge{}
	var order []string
	for _, sub := range recurring {
		cat := core.NormalizeCategory(sub.Category)
		if core.IsEssential(cat) || cat == "transport" {
			continue
		}
		if _, ok := byCategory[cat]; !ok {
			order = append(order, cat)
		}
		byCategory[cat] = append(byCategory[cat], sub)
	}

	var overlaps []Overlap
	for _, cat := range order {
		subs := byCategory[cat]
		if len(subs) < 2 {
			continue
		}
		var combined, cheapest float64
		cheapest = subs[0].AnnualCost
		members := make([]OverlapMember, len(subs))
		for i, s := range subs {
			combined += s.AnnualCost
			if s.AnnualCost < cheapest {
				cheapest = s.AnnualCost
			}
			members[i] = OverlapMember{Merchant: s.Merchant, Annual: s.AnnualCost}
		}
		overlaps = append(overlaps, Overlap{
			Category:         cat,
			Subscriptions:    members,
			Count:            len(subs),
			CombinedAnnual:   round2(combined),
			PotentialSavings: round2(combined - cheapest),
		})
	}
	sort.Slice(overlaps, func(i, j int) bool { return overlaps[i].CombinedAnnual > overlaps[j].CombinedAnnual })
	return overlaps
}

// ============================================================================
// COMBINED RESULT
// ============================================================================

// SubscriptionResult bundles recurring detection, per-merchant price
// creep, and overlap analysis.
type SubscriptionResult struct {
	Recurring    []RecurringCharge `json:"recurring"`
	PriceCreep   []PriceCreep      `json:"price_creep"`
	Overlaps     []Overlap         `json:"overlaps"`
	TotalMonthly float64           `json:"total_monthly"`
	TotalAnnual  float64           `json:"total_annual"`
}

// HuntSubscriptions runs the full subscription analysis. Price creep is
// checked for every detected recurring merchant; only detected creep is
// reported.
func HuntSubscriptions(txns []core.Transaction) *SubscriptionResult {
	recurring := DetectRecurringCharges(txns)

	result := &SubscriptionResult{Recurring: recurring}
	for _, sub := range recurring {
		result.TotalAnnual += sub.AnnualCost
		if sub.Frequency == "monthly" {
			result.TotalMonthly += sub.Amount
		}
		if creep := DetectPriceCreep(txns, sub.Merchant); creep.Detected {
			result.PriceCreep = append(result.PriceCreep, *creep)
		}
	}
	result.TotalMonthly = round2(result.TotalMonthly)
	result.TotalAnnual = round2(result.TotalAnnual)
	result.Overlaps = DetectSubscriptionOverlap(recurring)
	return result
}
