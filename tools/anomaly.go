package tools

import (
	"sort"
	"time"

	"github.com/Shirly8/Sift/core"
)

// ============================================================================
// TRANSACTION OUTLIERS
// ============================================================================

// Outlier is one transaction far above its category's usual range.
// IQRScore counts how many interquartile ranges the amount sits above
// the third quartile.
type Outlier struct {
	Merchant       string          `json:"merchant"`
	Amount         float64         `json:"amount"`
	Date           string          `json:"date"`
	Category       string          `json:"category"`
	CategoryMedian float64         `json:"category_median"`
	CategoryAvg    float64         `json:"category_avg"`
	UpperFence     float64         `json:"upper_fence"`
	IQRScore       float64         `json:"iqr_score"`
	Confidence     core.Confidence `json:"confidence"`
}

// DetectTransactionOutliers flags transactions above Q3 + 2.0*IQR within
// their category. IQR fences hold up on right-skewed amounts where
// z-scores on the raw values miss real outliers. The 2.0 multiplier is
// stricter than the common 1.5 so high-variance categories like
// Shopping do not over-flag. Categories need 5+ transactions.
func DetectTransactionOutliers(txns []core.Transaction) []Outlier {
	byCategory := map[string][]core.Transaction{}
	for _, t := range txns {
		if !t.IsSpending() {
			continue
		}
		c := core.NormalizeCategory(t.Category)
		byCategory[c] = append(byCategory[c], t)
	}

	var results []Outlier
	for cat, group := range byCategory {
		if len(group) < 5 {
			continue
		}
		amounts := make([]float64, len(group))
		for i, t := range group {
			amounts[i] = -t.Amount
		}
		q1 := quantile(amounts, 0.25)
		q3 := quantile(amounts, 0.75)
		iqr := q3 - q1
		if iqr == 0 {
			continue
		}
		upperFence := q3 + 2.0*iqr
		median := quantile(amounts, 0.50)
		avg := mean(amounts)

		for i, t := range group {
			amt := amounts[i]
			if amt <= upperFence {
				continue
			}
			score := round1((amt - q3) / iqr)
			conf := core.ConfidenceMedium
			if score >= 3.0 {
				conf = core.ConfidenceHigh
			}
			results = append(results, Outlier{
				Merchant:       t.Merchant,
				Amount:         round2(amt),
				Date:           t.Date.Format("2006-01-02"),
				Category:       cat,
				CategoryMedian: round2(median),
				CategoryAvg:    round2(avg),
				UpperFence:     round2(upperFence),
				IQRScore:       score,
				Confidence:     conf,
			})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].IQRScore > results[j].IQRScore })
	return results
}

// ============================================================================
// CATEGORY SPENDING SPIKES
// ============================================================================

// Spike is a category whose most recent month ran more than 50% above
// its prior average.
type Spike struct {
	Category         string  `json:"category"`
	RecentMonth      string  `json:"recent_month"`
	RecentMonthTotal float64 `json:"recent_month_total"`
	PriorAvg         float64 `json:"prior_avg"`
	SpikePct         float64 `json:"spike_pct"`
	MonthsCompared   int     `json:"months_compared"`
}

// DetectSpendingSpikes compares each category's latest month against the
// average of all earlier months. The table must span at least 45 days so
// there is a prior month to compare against.
func DetectSpendingSpikes(txns []core.Transaction) []Spike {
	if core.SpanDays(txns) < 45 {
		return nil
	}
	pivot := core.NewPivot(txns)
	if len(pivot.Months) < 2 {
		return nil
	}
	latest := pivot.Months[len(pivot.Months)-1]

	var results []Spike
	for _, cat := range pivot.Categories {
		col := pivot.Column(cat)
		recent := col[len(col)-1]
		prior := col[:len(col)-1]
		priorAvg := mean(prior)
		if priorAvg == 0 {
			continue
		}
		spikePct := (recent - priorAvg) / priorAvg * 100
		if spikePct > 50 {
			results = append(results, Spike{
				Category:         cat,
				RecentMonth:      latest,
				RecentMonthTotal: round2(recent),
				PriorAvg:         round2(priorAvg),
				SpikePct:         round1(spikePct),
				MonthsCompared:   len(prior),
			})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SpikePct > results[j].SpikePct })
	return results
}

// ============================================================================
// NEW MERCHANTS
// ============================================================================

// NewMerchant is a merchant first seen within the lookback window,
// either charging repeatedly (possible new subscription) or once at a
// suspicious size.
type NewMerchant struct {
	Merchant    string  `json:"merchant"`
	Category    string  `json:"category"`
	FirstSeen   string  `json:"first_seen"`
	Occurrences int     `json:"occurrences"`
	AvgAmount   float64 `json:"avg_amount"`
	Recurrence  string  `json:"recurrence"` // "monthly", "weekly", "one-time"
	HighValue   bool    `json:"high_value,omitempty"`
}

// DetectNewMerchants finds merchants whose first charge landed within
// lookbackDays of the latest transaction. Repeated charges of at least
// $5 are reported as possible new subscriptions; single charges only
// when they exceed max(3x the overall median, $50).
func DetectNewMerchants(txns []core.Transaction, lookbackDays int) []NewMerchant {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	spending := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.IsSpending() {
			spending = append(spending, t)
		}
	}
	if len(spending) == 0 {
		return nil
	}

	maxDate := spending[0].Date
	amounts := make([]float64, len(spending))
	for i, t := range spending {
		amounts[i] = -t.Amount
		if t.Date.After(maxDate) {
			maxDate = t.Date
		}
	}
	cutoff := maxDate.AddDate(0, 0, -lookbackDays)
	highValueThreshold := quantile(amounts, 0.50) * 3
	if highValueThreshold < 50 {
		highValueThreshold = 50
	}

	type merchantAgg struct {
		firstDate time.Time
		dates     []time.Time
		total     float64
		max       float64
		category  string
	}
	byMerchant := map[string]*merchantAgg{}
	var order []string
	for _, t := range spending {
		agg := byMerchant[t.Merchant]
		if agg == nil {
			agg = &merchantAgg{firstDate: t.Date, category: t.Category}
			byMerchant[t.Merchant] = agg
			order = append(order, t.Merchant)
		}
		if t.Date.Before(agg.firstDate) {
			agg.firstDate = t.Date
		}
		agg.dates = append(agg.dates, t.Date)
		amt := -t.Amount
		agg.total += amt
		if amt > agg.max {
			agg.max = amt
		}
	}
	sort.Strings(order)

	var results []NewMerchant
	for _, merchant := range order {
		agg := byMerchant[merchant]
		if agg.firstDate.Before(cutoff) {
			continue
		}
		n := len(agg.dates)
		avg := agg.total / float64(n)

		switch {
		case n >= 2 && avg >= 5:
			sort.Slice(agg.dates, func(i, j int) bool { return agg.dates[i].Before(agg.dates[j]) })
			var gapSum float64
			for i := 1; i < n; i++ {
				gapSum += agg.dates[i].Sub(agg.dates[i-1]).Hours() / 24
			}
			avgGap := gapSum / float64(n-1)
			recurrence := "one-time"
			if avgGap >= 25 && avgGap <= 35 {
				recurrence = "monthly"
			} else if avgGap >= 6 && avgGap <= 8 {
				recurrence = "weekly"
			}
			results = append(results, NewMerchant{
				Merchant:    merchant,
				Category:    agg.category,
				FirstSeen:   agg.firstDate.Format("2006-01-02"),
				Occurrences: n,
				AvgAmount:   round2(avg),
				Recurrence:  recurrence,
			})
		case n == 1 && agg.max >= highValueThreshold:
			results = append(results, NewMerchant{
				Merchant:    merchant,
				Category:    agg.category,
				FirstSeen:   agg.firstDate.Format("2006-01-02"),
				Occurrences: 1,
				AvgAmount:   round2(agg.max),
				Recurrence:  "one-time",
				HighValue:   true,
			})
		}
	}
	return results
}

// ============================================================================
// COMBINED RESULT
// ============================================================================

// AnomalyResult bundles the three anomaly detectors.
type AnomalyResult struct {
	Outliers     []Outlier     `json:"outliers"`
	Spikes       []Spike       `json:"spikes"`
	NewMerchants []NewMerchant `json:"new_merchants"`
}

// DetectAnomalies runs all three detectors with a 30-day new-merchant
// lookback.
func DetectAnomalies(txns []core.Transaction) *AnomalyResult {
	return &AnomalyResult{
		Outliers:     DetectTransactionOutliers(txns),
		Spikes:       DetectSpendingSpikes(txns),
		NewMerchants: DetectNewMerchants(txns, 30),
	}
}
