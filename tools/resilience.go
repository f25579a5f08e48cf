package tools

import (
	"errors"

	"github.com/Shirly8/Sift/core"
	"github.com/Shirly8/Sift/simulator"
)

// ============================================================================
// FINANCIAL RESILIENCE
// ============================================================================

// ResilienceResult pairs the job-loss stress test with the closed-form
// runway. StressTest is nil when there is no spending history to fit.
type ResilienceResult struct {
	StressTest *simulator.JobLossResult `json:"stress_test"`
	Runway     *simulator.RunwayResult  `json:"runway"`
}

// RunFinancialResilience answers "how long could this user survive a
// job loss" two ways: simulated against estimated savings and as a
// straight savings-over-burn division.
func RunFinancialResilience(engine *simulator.Engine, txns []core.Transaction) (*ResilienceResult, error) {
	result := &ResilienceResult{Runway: simulator.CalculateRunway(txns)}

	stress, err := engine.StressTest(txns, simulator.ScenarioJobLoss)
	if err != nil {
		if errors.Is(err, simulator.ErrNoSpendingData) {
			return result, nil
		}
		return nil, err
	}
	result.StressTest = stress.JobLoss
	return result, nil
}
