package simulator

import "github.com/Shirly8/Sift/core"

// ============================================================================
// RUNWAY (CLOSED FORM)
// ============================================================================

// RunwayResult answers "how long would savings last without income"
// straight from the aggregates, no sampling. When Valid is false, Reason
// says which precondition failed. Surplus marks a net-positive history
// where the runway question does not arise.
type RunwayResult struct {
	Valid            bool    `json:"valid"`
	Reason           string  `json:"reason,omitempty"`
	MonthsOfRunway   float64 `json:"months_of_runway"`
	Surplus          bool    `json:"surplus,omitempty"`
	MonthlyBurn      float64 `json:"monthly_burn"`
	MonthlyIncome    float64 `json:"monthly_income"`
	NetMonthly       float64 `json:"net_monthly"`
	EstimatedSavings float64 `json:"estimated_savings"`
}

// EstimatedSavings approximates accumulated savings over the data
// period as total income minus total spending, floored at zero.
func EstimatedSavings(txns []core.Transaction) float64 {
	txns = core.Normalize(txns)
	var income, spending float64
	for _, t := range txns {
		if t.IsIncome() {
			income += t.Amount
		} else if t.IsSpending() {
			spending += -t.Amount
		}
	}
	if income < spending {
		return 0
	}
	return income - spending
}

// CalculateRunway divides estimated savings by monthly burn. A table
// with no income reports exactly zero months of runway; with no
// spending the question is unanswerable; with net-positive months the
// result is flagged as a surplus instead of dividing by the margin.
func CalculateRunway(txns []core.Transaction) *RunwayResult {
	txns = core.Normalize(txns)
	var income, spending float64
	hasIncome := false
	months := map[string]bool{}
	for _, t := range txns {
		months[t.MonthKey()] = true
		if t.IsIncome() {
			income += t.Amount
			hasIncome = true
		} else if t.IsSpending() {
			spending += -t.Amount
		}
	}
	if !hasIncome {
		return &RunwayResult{
			Valid:          true,
			Reason:         "no income detected",
			MonthsOfRunway: 0,
		}
	}
	nMonths := len(months)
	if nMonths < 1 {
		nMonths = 1
	}
	burn := spending / float64(nMonths)
	monthlyIncome := income / float64(nMonths)
	if burn <= 0 {
		return &RunwayResult{Valid: false, Reason: "no spending detected"}
	}

	savings := EstimatedSavings(txns)
	res := &RunwayResult{
		Valid:            true,
		MonthsOfRunway:   round1(savings / burn),
		MonthlyBurn:      round2(burn),
		MonthlyIncome:    round2(monthlyIncome),
		NetMonthly:       round2(monthlyIncome - burn),
		EstimatedSavings: round2(savings),
	}
	if monthlyIncome > burn {
		res.Surplus = true
		res.Reason = "income exceeds spending; savings grow each month"
	}
	return res
}
