package simulator

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shirly8/Sift/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// yearFixture is a deterministic 12-month table: $3500 income on the
// 1st, $1200 rent, fixed grocery/dining/shopping/delivery rhythm, and
// Netflix + Spotify on the 15th. Monthly spending is $1767.98 flat.
func yearFixture() []core.Transaction {
	var txns []core.Transaction
	for m := time.January; m <= time.December; m++ {
		txns = append(txns,
			core.Transaction{Date: day(2024, m, 1), Amount: 3500, Merchant: "Acme Corp", Category: "Income"},
			core.Transaction{Date: day(2024, m, 1), Amount: -1200, Merchant: "Maple Apartments", Category: "Rent & Housing"},
			core.Transaction{Date: day(2024, m, 15), Amount: -15.99, Merchant: "Netflix", Category: "Subscriptions"},
			core.Transaction{Date: day(2024, m, 15), Amount: -11.99, Merchant: "Spotify", Category: "Subscriptions"},
			core.Transaction{Date: day(2024, m, 2), Amount: -80, Merchant: "Target", Category: "Shopping"},
			core.Transaction{Date: day(2024, m, 4), Amount: -40, Merchant: "DoorDash", Category: "Delivery"},
			core.Transaction{Date: day(2024, m, 8), Amount: -30, Merchant: "Thai Garden", Category: "Dining"},
			core.Transaction{Date: day(2024, m, 22), Amount: -30, Merchant: "Thai Garden", Category: "Dining"},
		)
		for d := 3; d <= 27; d += 3 {
			txns = append(txns, core.Transaction{
				Date: day(2024, m, d), Amount: -40, Merchant: "Whole Foods", Category: "Groceries",
			})
		}
	}
	return txns
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return New(WithSims(400), WithSeed(42))
}

// ============================================================================
// FITTING
// ============================================================================

func TestFitFloorsStd(t *testing.T) {
	set := Fit(yearFixture())
	require.NotEmpty(t, set.Dists)

	// flat history: sample std is 0, floored to 1.0
	d, ok := set.Lookup("groceries")
	require.True(t, ok)
	assert.InDelta(t, 360, d.Mean, 0.01)
	assert.Equal(t, 1.0, d.Std)

	assert.InDelta(t, 3500, set.MonthlyIncome, 0.01)
	assert.Equal(t, 12, set.Months)
}

func TestFitSingleMonthSynthesizesStd(t *testing.T) {
	txns := []core.Transaction{
		{Date: day(2024, 1, 5), Amount: -400, Category: "Groceries", Merchant: "Whole Foods"},
		{Date: day(2024, 1, 20), Amount: -400, Category: "Groceries", Merchant: "Whole Foods"},
	}
	set := Fit(txns)
	d, ok := set.Lookup("groceries")
	require.True(t, ok)
	assert.InDelta(t, 800, d.Mean, 0.01)
	assert.InDelta(t, 800*0.15, d.Std, 0.01)
}

func TestFitExcludesIncomeAndTransfers(t *testing.T) {
	txns := []core.Transaction{
		{Date: day(2024, 1, 1), Amount: 3500, Category: "Income"},
		{Date: day(2024, 1, 2), Amount: -500, Category: "Transfer"},
		{Date: day(2024, 1, 5), Amount: -100, Category: "Dining"},
	}
	set := Fit(txns)
	require.Len(t, set.Dists, 1)
	assert.Equal(t, "dining", set.Dists[0].Category)
}

// ============================================================================
// PROJECTION
// ============================================================================

func TestRunProjectionShape(t *testing.T) {
	proj, err := testEngine(t).RunProjection(yearFixture(), 6, nil)
	require.NoError(t, err)
	require.Len(t, proj.Monthly, 6)

	for _, m := range proj.Monthly {
		for _, band := range []Band{m.Spending, m.Net, m.CumulativeNet} {
			assert.LessOrEqual(t, band.P10, band.P25)
			assert.LessOrEqual(t, band.P25, band.P50)
			assert.LessOrEqual(t, band.P50, band.P75)
			assert.LessOrEqual(t, band.P75, band.P90)
		}
		assert.Greater(t, m.Spending.P50, 0.0)
	}

	assert.InDelta(t, 3500, proj.Baseline.MonthlyIncome, 0.01)
	assert.InDelta(t, 1767.98, proj.Baseline.MonthlySpending, 25)
	assert.Greater(t, proj.Baseline.FixedCosts, 0.0)
	assert.InDelta(t, proj.Baseline.MonthlySpending-proj.Baseline.FixedCosts, proj.Baseline.VariableSpending, 0.02)
}

func TestProjectionJobLoss(t *testing.T) {
	proj, err := testEngine(t).RunProjection(yearFixture(), 6, &Scenario{Type: ScenarioJobLoss})
	require.NoError(t, err)

	prev := 0.0
	for _, m := range proj.Monthly {
		assert.Negative(t, m.Net.P50, "no income means every month is net negative")
		assert.Less(t, m.CumulativeNet.P50, prev, "cumulative net keeps falling")
		prev = m.CumulativeNet.P50
	}
	// baseline reports the history, not the scenario
	assert.InDelta(t, 3500, proj.Baseline.MonthlyIncome, 0.01)
}

func TestProjectionExpenseIncrease(t *testing.T) {
	engine := testEngine(t)
	base, err := engine.RunProjection(yearFixture(), 6, nil)
	require.NoError(t, err)

	up, err := testEngine(t).RunProjection(yearFixture(), 6, &Scenario{
		Type: ScenarioExpenseIncrease, Category: "Rent & Housing", Multiplier: 1.5,
	})
	require.NoError(t, err)

	// rent mean moves from 1200 to 1800
	assert.Greater(t, up.Monthly[0].Spending.P50, base.Monthly[0].Spending.P50+400)
}

func TestProjectionSubscriptionPurge(t *testing.T) {
	base, err := testEngine(t).RunProjection(yearFixture(), 6, nil)
	require.NoError(t, err)

	purged, err := testEngine(t).RunProjection(yearFixture(), 6, &Scenario{Type: ScenarioSubscriptionPurge})
	require.NoError(t, err)

	assert.Less(t, purged.Monthly[0].Spending.P50, base.Monthly[0].Spending.P50)
}

func TestProjectionUnknownScenario(t *testing.T) {
	_, err := testEngine(t).RunProjection(yearFixture(), 6, &Scenario{Type: "meteor_strike"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownScenario))
}

func TestProjectionNoSpendingData(t *testing.T) {
	incomeOnly := []core.Transaction{
		{Date: day(2024, 1, 1), Amount: 3500, Category: "Income"},
	}
	_, err := testEngine(t).RunProjection(incomeOnly, 6, nil)
	assert.True(t, errors.Is(err, ErrNoSpendingData))
}

// ============================================================================
// STRESS TESTS
// ============================================================================

func TestStressJobLoss(t *testing.T) {
	result, err := testEngine(t).StressTest(yearFixture(), ScenarioJobLoss)
	require.NoError(t, err)
	require.NotNil(t, result.JobLoss)
	jl := result.JobLoss

	// savings ~ (3500 - 1767.98) * 12, burn ~1768/mo -> runs out in
	// month 12 of the simulation
	assert.InDelta(t, 20784.24, jl.EstimatedSavings, 0.01)
	assert.InDelta(t, 11, jl.MonthsOfRunway, 1.5)
	assert.LessOrEqual(t, jl.RunwayCI.P10, jl.MonthsOfRunway)
	assert.LessOrEqual(t, jl.MonthsOfRunway, jl.RunwayCI.P90)

	// essentials: rent 1200 + groceries 360
	assert.InDelta(t, 1560, jl.MinimumMonthlyBudget, 0.01)

	require.Len(t, jl.CategoriesToCut, 3)
	assert.Equal(t, "shopping", jl.CategoriesToCut[0].Category)
	assert.InDelta(t, 80, jl.CategoriesToCut[0].MonthlyAvg, 0.01)
	assert.InDelta(t, 40, jl.CategoriesToCut[0].PotentialSavings, 0.01, "assumes cutting half")
	assert.Equal(t, "dining", jl.CategoriesToCut[1].Category)
	assert.Equal(t, "delivery", jl.CategoriesToCut[2].Category)
}

func TestStressSubscriptionPurge(t *testing.T) {
	result, err := testEngine(t).StressTest(yearFixture(), ScenarioSubscriptionPurge)
	require.NoError(t, err)
	require.NotNil(t, result.SubscriptionPurge)
	sp := result.SubscriptionPurge

	assert.InDelta(t, 27.98, sp.MonthlySavings, 0.01)
	assert.InDelta(t, 27.98*12, sp.AnnualSavings, 0.01)

	r := 0.04 / 12
	for years, months := range map[string]float64{"1yr": 12, "3yr": 36, "5yr": 60} {
		want := 27.98 * (math.Pow(1+r, months) - 1) / r
		assert.InDelta(t, want, sp.CompoundedSavings[years], 0.01, years)
	}
	assert.Greater(t, sp.CompoundedSavings["1yr"], sp.AnnualSavings, "invested savings beat the flat total")
	assert.Greater(t, sp.CompoundedSavings["5yr"], sp.CompoundedSavings["3yr"])
}

func TestStressExpenseIncrease(t *testing.T) {
	result, err := testEngine(t).StressTest(yearFixture(), ScenarioExpenseIncrease)
	require.NoError(t, err)
	require.NotNil(t, result.ExpenseIncrease)
	ei := result.ExpenseIncrease

	assert.Equal(t, "Rent & Housing", ei.Category)
	assert.InDelta(t, 1200, ei.CurrentMonthly, 0.01)
	assert.InDelta(t, 240, ei.MonthlyImpact, 0.01)
	assert.InDelta(t, 2880, ei.AnnualImpact, 0.01)
}

func TestStressUnknownScenario(t *testing.T) {
	_, err := testEngine(t).StressTest(yearFixture(), "meteor_strike")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownScenario))
}

// ============================================================================
// RUNWAY
// ============================================================================

func TestRunwayHappyPath(t *testing.T) {
	res := CalculateRunway(yearFixture())
	require.True(t, res.Valid)
	assert.True(t, res.Surplus, "income exceeds spending")
	assert.InDelta(t, 1767.98, res.MonthlyBurn, 0.01)
	assert.InDelta(t, 3500, res.MonthlyIncome, 0.01)
	assert.InDelta(t, 11.8, res.MonthsOfRunway, 0.1)
}

func TestRunwayNoIncome(t *testing.T) {
	txns := []core.Transaction{
		{Date: day(2024, 1, 5), Amount: -100, Category: "Dining", Merchant: "Thai Garden"},
		{Date: day(2024, 2, 5), Amount: -100, Category: "Dining", Merchant: "Thai Garden"},
	}
	res := CalculateRunway(txns)
	require.True(t, res.Valid)
	assert.Equal(t, 0.0, res.MonthsOfRunway, "no income means zero runway, not an error")
	assert.NotEmpty(t, res.Reason)
}

func TestRunwayNoSpending(t *testing.T) {
	txns := []core.Transaction{
		{Date: day(2024, 1, 1), Amount: 3500, Category: "Income"},
		{Date: day(2024, 2, 1), Amount: 3500, Category: "Income"},
	}
	res := CalculateRunway(txns)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Reason)
}

func TestEstimatedSavingsFloor(t *testing.T) {
	txns := []core.Transaction{
		{Date: day(2024, 1, 1), Amount: 1000, Category: "Income"},
		{Date: day(2024, 1, 5), Amount: -2500, Category: "Dining"},
	}
	assert.Equal(t, 0.0, EstimatedSavings(txns), "spending beyond income floors at zero")
}

func TestConcurrentProjections(t *testing.T) {
	e := New(WithSims(200), WithSeed(9))
	txns := yearFixture()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			proj, err := e.RunProjection(txns, 6, nil)
			if err != nil {
				errs[i] = err
				return
			}
			if len(proj.Monthly) != 6 {
				errs[i] = fmt.Errorf("got %d months", len(proj.Monthly))
			}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestConcurrentStressTests(t *testing.T) {
	e := New(WithSims(200), WithSeed(9))
	txns := yearFixture()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.StressTest(txns, ScenarioJobLoss)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
}

func TestFitUnsignedAmounts(t *testing.T) {
	signed := yearFixture()
	magnitudes := make([]core.Transaction, len(signed))
	copy(magnitudes, signed)
	for i := range magnitudes {
		magnitudes[i].Amount = math.Abs(magnitudes[i].Amount)
	}

	want := Fit(signed)
	got := Fit(magnitudes)
	require.Equal(t, len(want.Dists), len(got.Dists))
	assert.Equal(t, want.MonthlyIncome, got.MonthlyIncome)
	for i := range want.Dists {
		assert.Equal(t, want.Dists[i], got.Dists[i])
	}

	res := CalculateRunway(magnitudes)
	require.True(t, res.Valid)
	assert.Greater(t, res.MonthlyBurn, 0.0)
	assert.Equal(t, CalculateRunway(signed).EstimatedSavings, res.EstimatedSavings)
}
