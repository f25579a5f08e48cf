package simulator

import (
	"errors"
	"fmt"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// SCENARIOS
// ============================================================================

// ErrUnknownScenario is returned when a scenario type is not one of the
// supported presets.
var ErrUnknownScenario = errors.New("unknown scenario")

// ErrNoSpendingData is returned when no spending history exists to fit
// distributions from.
var ErrNoSpendingData = errors.New("not enough spending data")

// ScenarioType names a what-if adjustment applied before sampling.
type ScenarioType string

const (
	ScenarioJobLoss           ScenarioType = "job_loss"
	ScenarioExpenseIncrease   ScenarioType = "expense_increase"
	ScenarioSubscriptionPurge ScenarioType = "subscription_purge"
)

// Scenario adjusts a fitted set before simulation. Category and
// Multiplier only apply to expense_increase; Multiplier defaults to 1.2.
type Scenario struct {
	Type       ScenarioType `json:"type"`
	Category   string       `json:"category,omitempty"`
	Multiplier float64      `json:"multiplier,omitempty"`
}

// apply returns a copy of the set with the scenario's adjustment baked
// in. The original set is never modified.
func (sc *Scenario) apply(set *FittedSet) (*FittedSet, error) {
	out := set.Clone()
	if sc == nil {
		return out, nil
	}

	switch sc.Type {
	case ScenarioJobLoss:
		out.MonthlyIncome = 0

	case ScenarioExpenseIncrease:
		mult := sc.Multiplier
		if mult == 0 {
			mult = 1.2
		}
		want := core.NormalizeCategory(sc.Category)
		for i, d := range out.Dists {
			if core.NormalizeCategory(d.Category) == want {
				out.Dists[i].Mean *= mult
			}
		}

	case ScenarioSubscriptionPurge:
		kept := out.Dists[:0]
		for _, d := range out.Dists {
			if core.NormalizeCategory(d.Category) != "subscriptions" {
				kept = append(kept, d)
			}
		}
		out.Dists = kept

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, sc.Type)
	}
	return out, nil
}
