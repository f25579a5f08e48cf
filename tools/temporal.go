// Package tools holds the read-only analysis passes the agent fans out
// over a transaction table. Every function here is pure: it takes the
// table, returns a result struct, and touches nothing else. Thin data
// comes back as a result with Detected/Valid false and a reason, never
// as an error.
package tools

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// PAYDAY PATTERN
// ============================================================================

// PaydayPattern reports whether spending clusters right after income
// lands.
type PaydayPattern struct {
	Detected           bool    `json:"payday_detected"`
	Reason             string  `json:"reason,omitempty"`
	PaydayDayOfMonth   int     `json:"payday_day_of_month,omitempty"`
	FirstWeekSpendPct  float64 `json:"spending_in_first_7_days_pct,omitempty"`
	PatternConsistency float64 `json:"pattern_consistency,omitempty"`
	CyclesAnalyzed     int     `json:"cycles_analyzed,omitempty"`
	Confidence         float64 `json:"confidence,omitempty"`
}

// DetectPaydayPattern measures, for each income deposit, how much of the
// following 30 days' spending happened in the first 7. Needs 3+ deposits
// and a consistency of at least 0.6 to call the pattern real.
func DetectPaydayPattern(txns []core.Transaction) *PaydayPattern {
	var incomeDates []time.Time
	for _, t := range txns {
		if t.IsIncome() {
			incomeDates = append(incomeDates, t.Date)
		}
	}
	if len(incomeDates) < 3 {
		return &PaydayPattern{Reason: fmt.Sprintf("only %d income deposits found, need 3+", len(incomeDates))}
	}
	sort.Slice(incomeDates, func(i, j int) bool { return incomeDates[i].Before(incomeDates[j]) })

	var firstWeekPcts []float64
	for _, pay := range incomeDates {
		monthEnd := pay.AddDate(0, 0, 30)
		weekEnd := pay.AddDate(0, 0, 7)
		var monthSpend, weekSpend float64
		for _, t := range txns {
			if !t.IsSpending() {
				continue
			}
			if t.Date.Before(pay) || !t.Date.Before(monthEnd) {
				continue
			}
			amt := -t.Amount
			monthSpend += amt
			if t.Date.Before(weekEnd) {
				weekSpend += amt
			}
		}
		if monthSpend > 0 {
			firstWeekPcts = append(firstWeekPcts, weekSpend/monthSpend)
		}
	}
	if len(firstWeekPcts) < 3 {
		return &PaydayPattern{Reason: "not enough payday cycles to analyze"}
	}

	var sum float64
	frontLoaded := 0
	for _, p := range firstWeekPcts {
		sum += p
		if p > 0.30 {
			frontLoaded++
		}
	}
	avgPct := sum / float64(len(firstWeekPcts))
	consistency := float64(frontLoaded) / float64(len(firstWeekPcts))

	if consistency < 0.6 {
		return &PaydayPattern{Reason: fmt.Sprintf("pattern too weak (consistency=%.0f%%)", consistency*100)}
	}

	dayCounts := map[int]int{}
	for _, d := range incomeDates {
		dayCounts[d.Day()]++
	}
	paydayDay, best := 0, 0
	for day, n := range dayCounts {
		if n > best || (n == best && day < paydayDay) {
			paydayDay, best = day, n
		}
	}

	confidence := consistency
	if confidence > 0.95 {
		confidence = 0.95
	}
	return &PaydayPattern{
		Detected:           true,
		PaydayDayOfMonth:   paydayDay,
		FirstWeekSpendPct:  round1(avgPct * 100),
		PatternConsistency: round2(consistency),
		CyclesAnalyzed:     len(firstWeekPcts),
		Confidence:         round2(confidence),
	}
}

// ============================================================================
// WEEKLY PATTERN
// ============================================================================

// WeeklyPattern summarizes how spending varies by day of week.
type WeeklyPattern struct {
	WeekendSpendingMultiple float64 `json:"weekend_spending_multiple"`
	HighestSpendingDay      string  `json:"highest_spending_day"`
	LowestSpendingDay       string  `json:"lowest_spending_day"`
	PatternStrength         float64 `json:"pattern_strength"`
	WeekdayAvg              float64 `json:"weekday_avg"`
	WeekendAvg              float64 `json:"weekend_avg"`
}

// DetectWeeklyPattern compares average transaction size per day of week.
// PatternStrength is the share of spending variance explained by day of
// week (between-group over total sum of squares).
func DetectWeeklyPattern(txns []core.Transaction) *WeeklyPattern {
	sums := map[time.Weekday]float64{}
	counts := map[time.Weekday]int{}
	var all []float64
	for _, t := range txns {
		if !t.IsSpending() {
			continue
		}
		amt := -t.Amount
		sums[t.Date.Weekday()] += amt
		counts[t.Date.Weekday()]++
		all = append(all, amt)
	}
	if len(all) == 0 {
		return &WeeklyPattern{WeekendSpendingMultiple: 1.0, HighestSpendingDay: "N/A", LowestSpendingDay: "N/A"}
	}

	avgs := map[time.Weekday]float64{}
	for d, n := range counts {
		avgs[d] = sums[d] / float64(n)
	}

	avgOver := func(days []time.Weekday) float64 {
		var total float64
		n := 0
		for _, d := range days {
			if counts[d] > 0 {
				total += avgs[d]
				n++
			}
		}
		if n == 0 {
			return 0
		}
		return total / float64(n)
	}
	weekdayAvg := avgOver([]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday})
	weekendAvg := avgOver([]time.Weekday{time.Saturday, time.Sunday})

	multiple := 1.0
	if weekdayAvg > 0 {
		multiple = round2(weekendAvg / weekdayAvg)
	}

	overall := stat.Mean(all, nil)
	var ssBetween, ssTotal float64
	for d, n := range counts {
		diff := avgs[d] - overall
		ssBetween += float64(n) * diff * diff
	}
	for _, v := range all {
		diff := v - overall
		ssTotal += diff * diff
	}
	strength := 0.0
	if ssTotal > 0 {
		strength = round2(ssBetween / ssTotal)
	}

	high, low := "N/A", "N/A"
	bestHigh, bestLow := -1.0, -1.0
	for d, v := range avgs {
		if bestHigh < 0 || v > bestHigh {
			bestHigh, high = v, d.String()
		}
		if bestLow < 0 || v < bestLow {
			bestLow, low = v, d.String()
		}
	}

	return &WeeklyPattern{
		WeekendSpendingMultiple: multiple,
		HighestSpendingDay:      high,
		LowestSpendingDay:       low,
		PatternStrength:         strength,
		WeekdayAvg:              round2(weekdayAvg),
		WeekendAvg:              round2(weekendAvg),
	}
}

// ============================================================================
// SEASONAL PATTERN
// ============================================================================

// SeasonalPattern reports month-to-month swing in total spending.
type SeasonalPattern struct {
	Detected            bool               `json:"seasonal_detected"`
	Reason              string             `json:"reason,omitempty"`
	MonthlyTotals       map[string]float64 `json:"monthly_totals,omitempty"`
	PeakMonth           string             `json:"peak_month,omitempty"`
	PeakAmount          float64            `json:"peak_amount,omitempty"`
	LowMonth            string             `json:"low_month,omitempty"`
	LowAmount           float64            `json:"low_amount,omitempty"`
	AvgMonthly          float64            `json:"avg_monthly,omitempty"`
	SeasonalityStrength float64            `json:"seasonality_strength,omitempty"`
	MonthsAnalyzed      int                `json:"months_analyzed,omitempty"`
	Confidence          core.Confidence    `json:"confidence,omitempty"`
}

// DetectSeasonalPattern checks whether monthly spending totals swing
// enough (coefficient of variation >= 0.10) to call seasonal. Confidence
// stays low until the history covers more than a year, high past two.
func DetectSeasonalPattern(txns []core.Transaction) *SeasonalPattern {
	pivot := core.NewPivot(txns)
	if len(pivot.Months) < 3 {
		return &SeasonalPattern{Reason: "need 3+ months for seasonal analysis"}
	}
	totals := pivot.MonthTotals()
	mean := stat.Mean(totals, nil)
	if mean <= 0 {
		return &SeasonalPattern{Reason: "no spending recorded"}
	}
	cv := stat.StdDev(totals, nil) / mean
	if cv < 0.10 {
		return &SeasonalPattern{Reason: fmt.Sprintf("spending is stable (CV=%.2f), no seasonal pattern", cv)}
	}

	monthName := func(key string) string {
		t, err := time.Parse("2006-01", key)
		if err != nil {
			return key
		}
		return t.Format("January 2006")
	}

	result := &SeasonalPattern{
		Detected:            true,
		MonthlyTotals:       map[string]float64{},
		AvgMonthly:          round2(mean),
		SeasonalityStrength: round2(cv),
		MonthsAnalyzed:      len(pivot.Months),
	}
	peakIdx, lowIdx := 0, 0
	for i, m := range pivot.Months {
		result.MonthlyTotals[monthName(m)] = round2(totals[i])
		if totals[i] > totals[peakIdx] {
			peakIdx = i
		}
		if totals[i] < totals[lowIdx] {
			lowIdx = i
		}
	}
	result.PeakMonth = monthName(pivot.Months[peakIdx])
	result.PeakAmount = round2(totals[peakIdx])
	result.LowMonth = monthName(pivot.Months[lowIdx])
	result.LowAmount = round2(totals[lowIdx])

	switch span := core.SpanDays(txns); {
	case span >= 730:
		result.Confidence = core.ConfidenceHigh
	case span >= 365:
		result.Confidence = core.ConfidenceMedium
	default:
		result.Confidence = core.ConfidenceLow
	}
	return result
}

// ============================================================================
// COMBINED RESULT
// ============================================================================

// TemporalResult bundles the three pattern detectors.
type TemporalResult struct {
	Payday   *PaydayPattern   `json:"payday"`
	Weekly   *WeeklyPattern   `json:"weekly"`
	Seasonal *SeasonalPattern `json:"seasonal"`
}

// DetectTemporalPatterns runs all three detectors over the table.
func DetectTemporalPatterns(txns []core.Transaction) *TemporalResult {
	return &TemporalResult{
		Payday:   DetectPaydayPattern(txns),
		Weekly:   DetectWeeklyPattern(txns),
		Seasonal: DetectSeasonalPattern(txns),
	}
}
