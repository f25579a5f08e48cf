package tools

import (
	"fmt"
	"math"
	"sort"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// SPENDING IMPACT
// ============================================================================

// CategoryImpact says how much of the month-to-month swing in total
// spending one category accounts for.
type CategoryImpact struct {
	Category   string  `json:"category"`
	ImpactPct  float64 `json:"impact_pct"`
	MonthlyStd float64 `json:"monthly_std"`
	MonthlyAvg float64 `json:"monthly_avg"`
	CV         float64 `json:"cv"`
}

// ImpactResult ranks categories by their contribution to spending
// variance. When Valid is false, Reason says which data requirement
// failed. Framed as variance explanation, not fault.
type ImpactResult struct {
	Valid      bool             `json:"model_valid"`
	Reason     string           `json:"reason,omitempty"`
	Months     int              `json:"n_months,omitempty"`
	Impacts    []CategoryImpact `json:"impacts,omitempty"`
	Confidence core.Confidence  `json:"confidence,omitempty"`
}

// FitImpactModel ranks categories by monthly standard deviation, each
// category's share of the summed stds being its impact percentage.
// Dollar std beats pure CV here: a $20/mo category with $15 std would
// outrank a $500/mo category with $200 std on CV, even though the
// latter swings 13x more dollars. Needs 180+ days, 6+ months, and 3+
// spending categories.
func FitImpactModel(txns []core.Transaction) *ImpactResult {
	span := core.SpanDays(txns)
	if span < 180 {
		return &ImpactResult{Reason: fmt.Sprintf("need 6+ months, have %d days", span)}
	}
	pivot := core.NewPivot(txns)
	if len(pivot.Months) < 6 {
		return &ImpactResult{Reason: fmt.Sprintf("only %d months with data, need 6+", len(pivot.Months))}
	}
	var categories []string
	for _, c := range pivot.Categories {
		var total float64
		for _, v := range pivot.Column(c) {
			total += v
		}
		if total > 0 {
			categories = append(categories, c)
		}
	}
	if len(categories) < 3 {
		return &ImpactResult{Reason: "need 3+ spending categories"}
	}

	stds := make(map[string]float64, len(categories))
	means := make(map[string]float64, len(categories))
	var totalStd float64
	for _, c := range categories {
		col := pivot.Column(c)
		stds[c] = stddev(col)
		means[c] = mean(col)
		totalStd += stds[c]
	}
	if totalStd == 0 {
		return &ImpactResult{Reason: "no spending variance detected"}
	}

	impacts := make([]CategoryImpact, 0, len(categories))
	for _, c := range categories {
		cv := 0.0
		if means[c] > 0 {
			cv = stds[c] / means[c]
		}
		impacts = append(impacts, CategoryImpact{
			Category:   c,
			ImpactPct:  round1(stds[c] / totalStd * 100),
			MonthlyStd: round2(stds[c]),
			MonthlyAvg: round2(means[c]),
			CV:         round3(cv),
		})
	}
	sort.Slice(impacts, func(i, j int) bool { return impacts[i].ImpactPct > impacts[j].ImpactPct })

	confidence := core.ConfidenceMedium
	if len(pivot.Months) >= 9 {
		confidence = core.ConfidenceHigh
	}
	return &ImpactResult{
		Valid:      true,
		Months:     len(pivot.Months),
		Impacts:    impacts,
		Confidence: confidence,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
