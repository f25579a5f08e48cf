package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shirly8/Sift/core"
)

// correlatedFixture spends six months where dining and entertainment
// scale together, with a flat groceries column alongside.
func correlatedFixture() []core.Transaction {
	var txns []core.Transaction
	for i := 0; i < 6; i++ {
		m := time.Month(1 + i)
		txns = append(txns,
			spend(day(2024, m, 10), 100+50*float64(i), "Thai Garden", "Dining"),
			spend(day(2024, m, 12), 200+100*float64(i), "AMC", "Entertainment"),
			spend(day(2024, m, 5), 150, "Whole Foods", "Groceries"),
		)
	}
	return txns
}

func TestCalculateCategoryCorrelations(t *testing.T) {
	result := CalculateCategoryCorrelations(correlatedFixture())
	assert.Equal(t, 3, result.PairsTested)
	require.Len(t, result.Correlations, 1)

	c := result.Correlations[0]
	assert.Equal(t, "dining", c.CategoryA)
	assert.Equal(t, "entertainment", c.CategoryB)
	assert.InDelta(t, 1.0, c.Correlation, 0.001)
	assert.Less(t, c.PValue, 0.05)
	assert.Equal(t, 6, c.Months)
	assert.Equal(t, core.ConfidenceHigh, c.Confidence)
	assert.Contains(t, c.Interpretation, "move together")
}

func TestCalculateCategoryCorrelationsShortSpan(t *testing.T) {
	txns := []core.Transaction{
		spend(day(2024, 1, 10), 100, "Thai Garden", "Dining"),
		spend(day(2024, 1, 20), 200, "AMC", "Entertainment"),
	}
	result := CalculateCategoryCorrelations(txns)
	assert.Zero(t, result.PairsTested)
	assert.Empty(t, result.Correlations)
}

func TestPearsonPValue(t *testing.T) {
	assert.Equal(t, 1.0, pearsonPValue(0.9, 2), "too few months to test")
	assert.Equal(t, 0.0, pearsonPValue(1.0, 6))
	// weak correlation over few months is nowhere near significant
	assert.Greater(t, pearsonPValue(0.2, 6), 0.5)
	// strong correlation over many months is
	assert.Less(t, pearsonPValue(0.9, 24), 0.001)
}

func TestBenjaminiHochberg(t *testing.T) {
	reject, adjusted := benjaminiHochberg([]float64{0.01, 0.04, 0.03, 0.5}, 0.10)

	assert.Equal(t, []bool{true, true, true, false}, reject)
	assert.InDelta(t, 0.04, adjusted[0], 1e-9)
	assert.InDelta(t, 0.0533, adjusted[1], 0.001)
	assert.InDelta(t, 0.0533, adjusted[2], 0.001)
	assert.InDelta(t, 0.5, adjusted[3], 1e-9)

	// adjusted p-values never drop below the raw ones
	for i, p := range []float64{0.01, 0.04, 0.03, 0.5} {
		assert.GreaterOrEqual(t, adjusted[i], p)
	}
}
