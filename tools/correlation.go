package tools

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// CATEGORY CORRELATIONS
// ============================================================================

// Correlation is one significant cross-category relationship in monthly
// spending totals. PValue is the FDR-adjusted value.
type Correlation struct {
	CategoryA      string          `json:"category_a"`
	CategoryB      string          `json:"category_b"`
	Correlation    float64         `json:"correlation"`
	PValue         float64         `json:"p_value"`
	Months         int             `json:"n_months"`
	Interpretation string          `json:"interpretation"`
	Confidence     core.Confidence `json:"confidence"`
}

// CorrelationResult carries the significant pairs plus how many were
// tested, so callers can tell "nothing found" from "nothing testable".
type CorrelationResult struct {
	Correlations []Correlation `json:"correlations"`
	PairsTested  int           `json:"pairs_tested"`
}

// CalculateCategoryCorrelations computes pairwise Pearson correlations
// over monthly category totals, then controls the false-discovery rate
// with Benjamini-Hochberg at alpha 0.10. BH stays practical for typical
// consumer tables (3-6 months, 10-14 categories) where Bonferroni would
// reject everything. Only pairs with |r| >= 0.4 that survive correction
// are reported. Needs 90+ days of data and 3+ spending categories.
func CalculateCategoryCorrelations(txns []core.Transaction) *CorrelationResult {
	result := &CorrelationResult{}
	if core.SpanDays(txns) < 90 {
		return result
	}
	pivot := core.NewPivot(txns)
	var categories []string
	for _, c := range pivot.Categories {
		var total float64
		for _, v := range pivot.Column(c) {
			total += v
		}
		if total > 0 {
			categories = append(categories, c)
		}
	}
	if len(categories) < 3 {
		return result
	}
	nMonths := len(pivot.Months)

	type pair struct {
		a, b string
		r    float64
		p    float64
	}
	var pairs []pair
	for i := 0; i < len(categories); i++ {
		for j := i + 1; j < len(categories); j++ {
			a := pivot.Column(categories[i])
			b := pivot.Column(categories[j])
			if stddev(a) < 1e-10 || stddev(b) < 1e-10 {
				continue
			}
			r := stat.Correlation(a, b, nil)
			pairs = append(pairs, pair{categories[i], categories[j], r, pearsonPValue(r, nMonths)})
		}
	}
	result.PairsTested = len(categories) * (len(categories) - 1) / 2
	if len(pairs) == 0 {
		return result
	}

	pvals := make([]float64, len(pairs))
	for i, p := range pairs {
		pvals[i] = p.p
	}
	reject, adjusted := benjaminiHochberg(pvals, 0.10)

	for idx, p := range pairs {
		if math.Abs(p.r) < 0.4 || !reject[idx] {
			continue
		}
		conf := core.ConfidenceMedium
		if math.Abs(p.r) >= 0.7 {
			conf = core.ConfidenceHigh
		}
		result.Correlations = append(result.Correlations, Correlation{
			CategoryA:      p.a,
			CategoryB:      p.b,
			Correlation:    round2(p.r),
			PValue:         math.Round(adjusted[idx]*10000) / 10000,
			Months:         nMonths,
			Interpretation: interpretCorrelation(p.r, p.a, p.b),
			Confidence:     conf,
		})
	}
	sort.Slice(result.Correlations, func(i, j int) bool {
		return math.Abs(result.Correlations[i].Correlation) > math.Abs(result.Correlations[j].Correlation)
	})
	return result
}

// pearsonPValue is the two-sided p-value for r under the null of no
// correlation, via the t-transform with n-2 degrees of freedom.
func pearsonPValue(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	df := float64(n - 2)
	denom := 1 - r*r
	if denom <= 0 {
		return 0
	}
	t := math.Abs(r) * math.Sqrt(df/denom)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(t)
}

// benjaminiHochberg applies step-up FDR control. Returns the rejection
// mask and adjusted p-values, both in input order.
func benjaminiHochberg(pvals []float64, alpha float64) ([]bool, []float64) {
	m := len(pvals)
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return pvals[order[i]] < pvals[order[j]] })

	adjusted := make([]float64, m)
	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		v := pvals[idx] * float64(m) / float64(rank)
		if v < running {
			running = v
		}
		adjusted[idx] = running
	}

	reject := make([]bool, m)
	cut := -1
	for rank := 1; rank <= m; rank++ {
		if pvals[order[rank-1]] <= float64(rank)/float64(m)*alpha {
			cut = rank
		}
	}
	for rank := 1; rank <= cut; rank++ {
		reject[order[rank-1]] = true
	}
	return reject, adjusted
}

func interpretCorrelation(r float64, a, b string) string {
	strength := "moderately"
	if math.Abs(r) > 0.7 {
		strength = "strongly"
	}
	if r > 0 {
		return fmt.Sprintf("%s and %s %s move together (r=%.2f)", a, b, strength, r)
	}
	return fmt.Sprintf("when %s spending increases, %s drops %s (r=%.2f)", a, b, strength, r)
}
