package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shirly8/Sift/core"
)

// paydayFixture pays on the 1st and front-loads most spending into the
// first few days of each month, Jan through Apr 2024.
func paydayFixture() []core.Transaction {
	var txns []core.Transaction
	for m := time.January; m <= time.April; m++ {
		txns = append(txns,
			income(day(2024, m, 1), 3500),
			spend(day(2024, m, 2), 80, "Target", "Shopping"),
			spend(day(2024, m, 3), 60, "DoorDash", "Delivery"),
			spend(day(2024, m, 4), 40, "Thai Garden", "Dining"),
			spend(day(2024, m, 20), 30, "Thai Garden", "Dining"),
		)
	}
	return txns
}

func TestDetectPaydayPattern(t *testing.T) {
	p := DetectPaydayPattern(paydayFixture())
	require.True(t, p.Detected)
	assert.Equal(t, 1, p.PaydayDayOfMonth)
	assert.Equal(t, 4, p.CyclesAnalyzed)
	assert.InDelta(t, 85.7, p.FirstWeekSpendPct, 0.1)
	assert.Equal(t, 1.0, p.PatternConsistency)
	assert.Equal(t, 0.95, p.Confidence, "confidence is capped")
}

func TestDetectPaydayPatternTooFewDeposits(t *testing.T) {
	txns := []core.Transaction{
		income(day(2024, 1, 1), 3500),
		income(day(2024, 2, 1), 3500),
		spend(day(2024, 1, 2), 80, "Target", "Shopping"),
	}
	p := DetectPaydayPattern(txns)
	assert.False(t, p.Detected)
	assert.Contains(t, p.Reason, "need 3+")
}

func TestDetectPaydayPatternEvenSpending(t *testing.T) {
	// spending spread evenly across the month never clears the 30%
	// first-week share
	var txns []core.Transaction
	for m := time.January; m <= time.April; m++ {
		txns = append(txns, income(day(2024, m, 1), 3500))
		for d := 2; d <= 26; d += 4 {
			txns = append(txns, spend(day(2024, m, d), 40, "Whole Foods", "Groceries"))
		}
	}
	p := DetectPaydayPattern(txns)
	assert.False(t, p.Detected)
	assert.NotEmpty(t, p.Reason)
}

func TestDetectWeeklyPattern(t *testing.T) {
	// 2024-01-01 is a Monday
	txns := []core.Transaction{
		spend(day(2024, 1, 1), 10, "Pret", "Dining"),
		spend(day(2024, 1, 2), 11, "Pret", "Dining"),
		spend(day(2024, 1, 3), 12, "Pret", "Dining"),
		spend(day(2024, 1, 4), 13, "Pret", "Dining"),
		spend(day(2024, 1, 5), 14, "Pret", "Dining"),
		spend(day(2024, 1, 6), 50, "Thai Garden", "Dining"),
		spend(day(2024, 1, 7), 40, "Thai Garden", "Dining"),
	}
	w := DetectWeeklyPattern(txns)
	assert.InDelta(t, 12, w.WeekdayAvg, 0.01)
	assert.InDelta(t, 45, w.WeekendAvg, 0.01)
	assert.InDelta(t, 3.75, w.WeekendSpendingMultiple, 0.01)
	assert.Equal(t, "Saturday", w.HighestSpendingDay)
	assert.Equal(t, "Monday", w.LowestSpendingDay)
	// one transaction per weekday means day of week explains everything
	assert.Equal(t, 1.0, w.PatternStrength)
}

func TestDetectWeeklyPatternEmpty(t *testing.T) {
	w := DetectWeeklyPattern(nil)
	assert.Equal(t, 1.0, w.WeekendSpendingMultiple)
	assert.Equal(t, "N/A", w.HighestSpendingDay)
}

func TestDetectSeasonalPattern(t *testing.T) {
	txns := []core.Transaction{
		spend(day(2024, 1, 10), 1000, "Target", "Shopping"),
		spend(day(2024, 2, 10), 1000, "Target", "Shopping"),
		spend(day(2024, 3, 10), 2000, "Target", "Shopping"),
	}
	s := DetectSeasonalPattern(txns)
	require.True(t, s.Detected)
	assert.Equal(t, "March 2024", s.PeakMonth)
	assert.InDelta(t, 2000, s.PeakAmount, 0.01)
	assert.Equal(t, "January 2024", s.LowMonth)
	assert.Equal(t, 3, s.MonthsAnalyzed)
	assert.Equal(t, core.ConfidenceLow, s.Confidence, "under a year of history")
}

func TestDetectSeasonalPatternStable(t *testing.T) {
	txns := []core.Transaction{
		spend(day(2024, 1, 10), 1000, "Target", "Shopping"),
		spend(day(2024, 2, 10), 1000, "Target", "Shopping"),
		spend(day(2024, 3, 10), 1000, "Target", "Shopping"),
	}
	s := DetectSeasonalPattern(txns)
	assert.False(t, s.Detected)
	assert.Contains(t, s.Reason, "stable")
}

func TestDetectSeasonalPatternConfidenceGrowsWithSpan(t *testing.T) {
	var txns []core.Transaction
	for i := 0; i < 25; i++ {
		amount := 1000.0
		if i%12 == 11 {
			amount = 2500 // december every year
		}
		txns = append(txns, spend(day(2022, time.January, 10).AddDate(0, i, 0), amount, "Target", "Shopping"))
	}
	s := DetectSeasonalPattern(txns)
	require.True(t, s.Detected)
	assert.Equal(t, core.ConfidenceHigh, s.Confidence)
}

func TestDetectTemporalPatterns(t *testing.T) {
	r := DetectTemporalPatterns(paydayFixture())
	require.NotNil(t, r.Payday)
	require.NotNil(t, r.Weekly)
	require.NotNil(t, r.Seasonal)
	assert.True(t, r.Payday.Detected)
}
