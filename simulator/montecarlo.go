package simulator

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Shirly8/Sift/core"
)

// DefaultSims is the trial count used when none is configured. 500-1000
// keeps percentile estimates stable without noticeable latency.
const DefaultSims = 1000

// ============================================================================
// ENGINE
// ============================================================================

// Engine runs Monte Carlo projections. Construct with New; the zero
// value is not usable. Methods are safe for concurrent use: each
// simulation derives its own rand source from the base seed and a call
// counter, so parallel runs never share generator state.
type Engine struct {
	sims   int
	seed   uint64
	seeded bool
	calls  atomic.Uint64
	log    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSims overrides the trial count.
func WithSims(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sims = n
		}
	}
}

// WithSeed makes sampling deterministic, for tests.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.seed = seed
		e.seeded = true
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine with DefaultSims trials and a time-seeded source.
func New(opts ...Option) *Engine {
	e := &Engine{sims: DefaultSims, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	if !e.seeded {
		e.seed = uint64(time.Now().UnixNano())
	}
	return e
}

// simulate samples total monthly spending for every trial. Returns a
// sims x months matrix. Negative draws are clipped to zero before
// summing; a category cannot refund the month. A fresh source per call
// keeps concurrent simulations from sharing generator state.
func (e *Engine) simulate(set *FittedSet, months int) [][]float64 {
	src := rand.NewSource(e.seed + e.calls.Add(1))
	totals := make([][]float64, e.sims)
	for i := range totals {
		totals[i] = make([]float64, months)
	}
	for _, d := range set.Dists {
		n := distuv.Normal{Mu: d.Mean, Sigma: d.Std, Src: src}
		for i := 0; i < e.sims; i++ {
			for m := 0; m < months; m++ {
				v := n.Rand()
				if v < 0 {
					v = 0
				}
				totals[i][m] += v
			}
		}
	}
	return totals
}

// ============================================================================
// PROJECTION
// ============================================================================

// Band is an empirical percentile summary across trials.
type Band struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// MonthProjection summarizes one future month across all trials. Month
// is 1-based.
type MonthProjection struct {
	Month         int  `json:"month"`
	Spending      Band `json:"spending"`
	Net           Band `json:"net"`
	CumulativeNet Band `json:"cumulative_net"`
}

// Baseline describes the fitted history the projection starts from,
// before any scenario adjustment.
type Baseline struct {
	MonthlyIncome    float64 `json:"monthly_income"`
	MonthlySpending  float64 `json:"monthly_spending"`
	FixedCosts       float64 `json:"fixed_costs"`
	VariableSpending float64 `json:"variable_spending"`
}

// Projection is the full result of RunProjection.
type Projection struct {
	Scenario *Scenario         `json:"scenario,omitempty"`
	Months   int               `json:"months"`
	Monthly  []MonthProjection `json:"monthly"`
	Baseline Baseline          `json:"baseline"`
}

// RunProjection fits distributions from the table, applies the optional
// scenario to a copy, and samples the requested horizon. A nil scenario
// projects the status quo.
func (e *Engine) RunProjection(txns []core.Transaction, months int, scenario *Scenario) (*Projection, error) {
	if months <= 0 {
		months = 12
	}
	set := Fit(txns)
	if len(set.Dists) == 0 {
		return nil, ErrNoSpendingData
	}

	adjusted, err := scenario.apply(set)
	if err != nil {
		return nil, err
	}

	totals := e.simulate(adjusted, months)
	nets := make([][]float64, e.sims)
	cums := make([][]float64, e.sims)
	for i := range totals {
		nets[i] = make([]float64, months)
		cums[i] = make([]float64, months)
		var running float64
		for m := 0; m < months; m++ {
			nets[i][m] = adjusted.MonthlyIncome - totals[i][m]
			running += nets[i][m]
			cums[i][m] = running
		}
	}

	proj := &Projection{Scenario: scenario, Months: months}
	col := make([]float64, e.sims)
	for m := 0; m < months; m++ {
		mp := MonthProjection{Month: m + 1}
		for i := range totals {
			col[i] = totals[i][m]
		}
		mp.Spending = band(col)
		for i := range nets {
			col[i] = nets[i][m]
		}
		mp.Net = band(col)
		for i := range cums {
			col[i] = cums[i][m]
		}
		mp.CumulativeNet = band(col)
		proj.Monthly = append(proj.Monthly, mp)
	}

	var simTotal float64
	for i := range totals {
		for m := 0; m < months; m++ {
			simTotal += totals[i][m]
		}
	}
	avgSpend := simTotal / float64(e.sims*months)
	fixed := set.FixedCosts()
	proj.Baseline = Baseline{
		MonthlyIncome:    round2(set.MonthlyIncome),
		MonthlySpending:  round2(avgSpend),
		FixedCosts:       round2(fixed),
		VariableSpending: round2(math.Max(0, avgSpend-fixed)),
	}

	e.log.Debug().
		Int("months", months).
		Int("sims", e.sims).
		Interface("scenario", scenario).
		Msg("projection complete")

	return proj, nil
}

// band computes the empirical percentile summary of one column of
// trials, with numpy-style linear interpolation.
func band(vals []float64) Band {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	q := func(p float64) float64 {
		return round2(stat.Quantile(p, stat.LinInterp, s, nil))
	}
	return Band{P10: q(0.10), P25: q(0.25), P50: q(0.50), P75: q(0.75), P90: q(0.90)}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
