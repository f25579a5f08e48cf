package core

// ============================================================================
// INSIGHT TYPES
// ============================================================================

// Confidence grades how strongly the data supports a finding.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidences for sorting, high first.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// InsightSource distinguishes findings assembled from tool evidence from
// ones written by the language model.
type InsightSource string

const (
	SourceCrossReference InsightSource = "cross_reference"
	SourceLLM            InsightSource = "llm"
)

// Insight is one user-facing finding with its supporting evidence.
type Insight struct {
	Title           string        `json:"title"`
	Body            string        `json:"body"`
	Confidence      Confidence    `json:"confidence"`
	DollarImpact    float64       `json:"dollar_impact"`
	Source          InsightSource `json:"source"`
	SuggestedAction string        `json:"suggested_action,omitempty"`
	Evidence        []string      `json:"evidence,omitempty"`
}

// SavingsOpportunity is one concrete way to free up money, with the
// monthly and yearly amounts it is worth.
type SavingsOpportunity struct {
	Kind          string   `json:"kind"` // "consolidate", "price_creep", "category_cut"
	Description   string   `json:"description"`
	Category      string   `json:"category,omitempty"`
	Merchants     []string `json:"merchants,omitempty"`
	MonthlyAmount float64  `json:"monthly_amount"`
	AnnualAmount  float64  `json:"annual_amount"`
}
