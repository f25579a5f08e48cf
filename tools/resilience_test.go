package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shirly8/Sift/core"
	"github.com/Shirly8/Sift/simulator"
)

func TestRunFinancialResilience(t *testing.T) {
	var txns []core.Transaction
	for i := 0; i < 6; i++ {
		m := time.Month(1 + i)
		txns = append(txns,
			income(day(2024, m, 1), 3000),
			spend(day(2024, m, 1), 1200, "Maple Apartments", "Rent & Housing"),
			spend(day(2024, m, 10), 300, "Whole Foods", "Groceries"),
		)
	}

	engine := simulator.New(simulator.WithSims(200), simulator.WithSeed(7))
	result, err := RunFinancialResilience(engine, txns)
	require.NoError(t, err)
	require.NotNil(t, result.StressTest)
	require.NotNil(t, result.Runway)

	assert.True(t, result.Runway.Valid)
	assert.True(t, result.Runway.Surplus)
	assert.Greater(t, result.StressTest.MonthsOfRunway, 0.0)
	assert.InDelta(t, 1500, result.StressTest.MinimumMonthlyBudget, 0.01)
}

func TestRunFinancialResilienceNoSpending(t *testing.T) {
	txns := []core.Transaction{
		income(day(2024, 1, 1), 3000),
		income(day(2024, 2, 1), 3000),
	}
	engine := simulator.New(simulator.WithSims(50), simulator.WithSeed(7))
	result, err := RunFinancialResilience(engine, txns)
	require.NoError(t, err)
	assert.Nil(t, result.StressTest, "nothing to simulate")
	assert.False(t, result.Runway.Valid)
}
