package simulator

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// STRESS TESTS
// ============================================================================

// runwayHorizon caps the job-loss simulation. Runways surviving the full
// horizon are reported as the horizon itself.
const runwayHorizon = 36

// CategoryCut is one discretionary category a user could trim in a
// crunch. PotentialSavings assumes cutting half the category.
type CategoryCut struct {
	Category         string  `json:"category"`
	MonthlyAvg       float64 `json:"monthly_avg"`
	PotentialSavings float64 `json:"potential_savings"`
}

// RunwayCI is the spread of simulated runways across trials.
type RunwayCI struct {
	P10 float64 `json:"p10"`
	P90 float64 `json:"p90"`
}

// JobLossResult answers "how long would savings last if income stopped".
type JobLossResult struct {
	MonthsOfRunway       float64       `json:"months_of_runway"`
	RunwayCI             RunwayCI      `json:"runway_ci"`
	EstimatedSavings     float64       `json:"estimated_savings"`
	MinimumMonthlyBudget float64       `json:"minimum_monthly_budget"`
	CategoriesToCut      []CategoryCut `json:"categories_to_cut"`
}

// SubscriptionPurgeResult quantifies dropping every subscription, with
// the savings invested at 4%/yr compounded monthly.
type SubscriptionPurgeResult struct {
	MonthlySavings    float64            `json:"monthly_savings"`
	AnnualSavings     float64            `json:"annual_savings"`
	CompoundedSavings map[string]float64 `json:"compounded_savings"` // "1yr", "3yr", "5yr"
}

// ExpenseIncreaseResult quantifies a 20% housing cost increase.
type ExpenseIncreaseResult struct {
	Category       string  `json:"category"`
	CurrentMonthly float64 `json:"current_monthly"`
	MonthlyImpact  float64 `json:"monthly_impact"`
	AnnualImpact   float64 `json:"annual_impact"`
}

// StressResult is a tagged union; exactly one branch is non-nil,
// matching Scenario.
type StressResult struct {
	Scenario          ScenarioType             `json:"scenario"`
	JobLoss           *JobLossResult           `json:"job_loss,omitempty"`
	SubscriptionPurge *SubscriptionPurgeResult `json:"subscription_purge,omitempty"`
	ExpenseIncrease   *ExpenseIncreaseResult   `json:"expense_increase,omitempty"`
}

// StressTest runs one preset scenario against the table's fitted
// distributions. Unknown scenario names are an error, not an empty
// result.
func (e *Engine) StressTest(txns []core.Transaction, scenario ScenarioType) (*StressResult, error) {
	set := Fit(txns)
	if len(set.Dists) == 0 {
		return nil, ErrNoSpendingData
	}

	switch scenario {
	case ScenarioJobLoss:
		return &StressResult{Scenario: scenario, JobLoss: e.jobLoss(txns, set)}, nil
	case ScenarioSubscriptionPurge:
		return &StressResult{Scenario: scenario, SubscriptionPurge: subscriptionPurge(set)}, nil
	case ScenarioExpenseIncrease:
		return &StressResult{Scenario: scenario, ExpenseIncrease: expenseIncrease(set)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, scenario)
}

// jobLoss simulates months until cumulative spending exhausts estimated
// savings, with income zeroed.
func (e *Engine) jobLoss(txns []core.Transaction, set *FittedSet) *JobLossResult {
	savings := EstimatedSavings(txns)

	totals := e.simulate(set, runwayHorizon)
	runways := make([]float64, e.sims)
	for i, trial := range totals {
		var cumulative float64
		months := float64(runwayHorizon)
		for m, spend := range trial {
			cumulative += spend
			if cumulative > savings {
				months = float64(m)
				break
			}
		}
		runways[i] = months
	}
	sort.Float64s(runways)

	var cuts []CategoryCut
	var minBudget float64
	for _, d := range set.Dists {
		if core.IsDiscretionary(d.Category) {
			cuts = append(cuts, CategoryCut{
				Category:         d.Category,
				MonthlyAvg:       round2(d.Mean),
				PotentialSavings: round2(d.Mean * 0.5),
			})
		}
		if core.IsEssential(d.Category) {
			minBudget += d.Mean
		}
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].MonthlyAvg > cuts[j].MonthlyAvg })
	if len(cuts) > 3 {
		cuts = cuts[:3]
	}

	return &JobLossResult{
		MonthsOfRunway: round1(stat.Quantile(0.50, stat.LinInterp, runways, nil)),
		RunwayCI: RunwayCI{
			P10: round1(stat.Quantile(0.10, stat.LinInterp, runways, nil)),
			P90: round1(stat.Quantile(0.90, stat.LinInterp, runways, nil)),
		},
		EstimatedSavings:     round2(savings),
		MinimumMonthlyBudget: round2(minBudget),
		CategoriesToCut:      cuts,
	}
}

func subscriptionPurge(set *FittedSet) *SubscriptionPurgeResult {
	var monthly float64
	if d, ok := set.Lookup("subscriptions"); ok {
		monthly = d.Mean
	}
	r := 0.04 / 12
	fv := func(months int) float64 {
		return round2(monthly * (math.Pow(1+r, float64(months)) - 1) / r)
	}
	return &SubscriptionPurgeResult{
		MonthlySavings: round2(monthly),
		AnnualSavings:  round2(monthly * 12),
		CompoundedSavings: map[string]float64{
			"1yr": fv(12),
			"3yr": fv(36),
			"5yr": fv(60),
		},
	}
}

func expenseIncrease(set *FittedSet) *ExpenseIncreaseResult {
	var housing float64
	if d, ok := set.Lookup("rent & housing"); ok {
		housing = d.Mean
	}
	impact := housing * 0.20
	return &ExpenseIncreaseResult{
		Category:       "Rent & Housing",
		CurrentMonthly: round2(housing),
		MonthlyImpact:  round2(impact),
		AnnualImpact:   round2(impact * 12),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
