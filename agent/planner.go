package agent

import "fmt"

// ============================================================================
// ANALYSIS PLANNING
// ============================================================================

// Tool names, in fixed priority order. The executor runs enabled tools
// concurrently but reports follow this order.
const (
	ToolTemporalPatterns    = "temporal_patterns"
	ToolAnomalyDetection    = "anomaly_detection"
	ToolSubscriptionHunter  = "subscription_hunter"
	ToolCorrelationEngine   = "correlation_engine"
	ToolSpendingImpact      = "spending_impact"
	ToolFinancialResilience = "financial_resilience"
)

// Requirement is the hard data gate for one tool. Zero fields are
// unconstrained.
type Requirement struct {
	MinDays         int
	MinCategories   int
	MinTransactions int
}

// toolRequirements gates each tool on the data it needs to say anything
// meaningful. Ordering is the fixed priority order.
var toolRequirements = []struct {
	Name string
	Req  Requirement
}{
	{ToolTemporalPatterns, Requirement{MinDays: 90}},
	{ToolAnomalyDetection, Requirement{}},
	{ToolSubscriptionHunter, Requirement{MinTransactions: 100}},
	{ToolCorrelationEngine, Requirement{MinDays: 90, MinCategories: 3}},
	{ToolSpendingImpact, Requirement{MinDays: 180, MinCategories: 5}},
	{ToolFinancialResilience, Requirement{MinDays: 30}},
}

// PlannedTool is one tool's gate decision.
type PlannedTool struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Reason  string `json:"reason"`
}

// Plan lists every tool with its decision, enabled or not, so callers
// can always see why something was skipped.
type Plan struct {
	Tools []PlannedTool `json:"tools"`
}

// Enabled returns the names of tools that will run.
func (p *Plan) Enabled() []string {
	var out []string
	for _, t := range p.Tools {
		if t.Enabled {
			out = append(out, t.Name)
		}
	}
	return out
}

// PlanAnalysis checks every tool's requirements against the profile.
// Gates are checked in order (days, categories, transactions) and the
// first failing gate sets the skip reason.
func PlanAnalysis(profile *Profile) *Plan {
	plan := &Plan{}
	for _, tr := range toolRequirements {
		decision := PlannedTool{Name: tr.Name, Enabled: true, Reason: "requirements met"}
		switch {
		case profile.DateRangeDays < tr.Req.MinDays:
			decision.Enabled = false
			decision.Reason = fmt.Sprintf("need %d+ days, have %d", tr.Req.MinDays, profile.DateRangeDays)
		case profile.CategoryCount < tr.Req.MinCategories:
			decision.Enabled = false
			decision.Reason = fmt.Sprintf("need %d+ categories, have %d", tr.Req.MinCategories, profile.CategoryCount)
		case profile.TransactionCount < tr.Req.MinTransactions:
			decision.Enabled = false
			decision.Reason = fmt.Sprintf("need %d+ transactions, have %d", tr.Req.MinTransactions, profile.TransactionCount)
		}
		plan.Tools = append(plan.Tools, decision)
	}
	return plan
}
