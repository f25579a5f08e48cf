package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Shirly8/Sift/core"
	"github.com/Shirly8/Sift/llm"
)

// ============================================================================
// INSIGHT SYNTHESIS
// ============================================================================

// maxInsights caps the final ranked list.
const maxInsights = 5

// crossRefTarget: below this many cross-referenced insights the LLM is
// asked to supplement. At or above it, the call is skipped entirely;
// cross-refs already cover the data and LLM dollar amounts are the main
// hallucination risk.
const crossRefTarget = 6

// bannedWords never appear in user-facing insights. Covers moralizing
// language and statistical jargon.
var bannedWords = []string{
	"should", "bad", "problem", "waste", "too much", "excessive",
	"avoid", "excess", "splurge", "cut back", "habit", "frequent",
	"overspend", "reckless", "irresponsible", "guilty", "alarming",
	"variance", "standard deviation", "coefficient", "regression",
	"percentile", "volatility", "burn rate",
}

// topicKeywords is the vocabulary used to compare insights for
// deduplication. An insight about "payday + dining" collides with both
// a payday insight and a dining insight.
var topicKeywords = []string{
	"subscription", "streaming", "payday", "weekend",
	"dining", "delivery", "shopping", "entertainment",
	"grocery", "transport", "correlation", "price creep",
	"runway", "resilience",
}

// Synthesizer turns tool outputs into ranked, neutrally framed
// insights. Generator may be nil; synthesis then runs on cross
// references alone.
type Synthesizer struct {
	gen llm.Generator
	log zerolog.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(gen llm.Generator, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, log: log}
}

// Synthesize cross-references the tool outputs, optionally supplements
// with LLM-written insights, fact-checks dollar claims, deduplicates,
// and returns at most five insights ranked by dollar impact.
func (s *Synthesizer) Synthesize(ctx context.Context, outputs *ToolOutputs, profile *Profile) []core.Insight {
	insights := s.crossReference(outputs)

	if len(insights) < crossRefTarget && s.gen != nil {
		avoid := map[string]bool{}
		for _, ins := range insights {
			for _, k := range extractTopics(strings.ToLower(ins.Title + " " + ins.Body)) {
				avoid[k] = true
			}
		}
		insights = append(insights, s.supplementWithLLM(ctx, outputs, profile, avoid)...)
	}

	insights = s.enforceFraming(insights)
	insights = s.factCheck(insights, outputs)
	insights = s.deduplicate(insights)
	rankInsights(insights)
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// ----------------------------------------------------------------------------
// cross-referencing
// ----------------------------------------------------------------------------

// crossReference finds connections between tool outputs that no single
// tool can see. This is the compound-insight layer; everything here is
// computed from real numbers, so it outranks LLM output downstream.
func (s *Synthesizer) crossReference(outputs *ToolOutputs) []core.Insight {
	var insights []core.Insight

	impactValid := outputs.Impact != nil && outputs.Impact.Valid && len(outputs.Impact.Impacts) > 0
	var topDriver string
	if impactValid {
		topDriver = outputs.Impact.Impacts[0].Category
	}

	// payday spike + top variance driver
	if outputs.Temporal != nil && outputs.Temporal.Payday != nil && outputs.Temporal.Payday.Detected && impactValid {
		pct := outputs.Temporal.Payday.FirstWeekSpendPct
		insights = append(insights, core.Insight{
			Title: fmt.Sprintf("Most of your %s spending happens right after payday", topDriver),
			Body: fmt.Sprintf(
				"%.1f%% of your spending happens in the first week after payday, and %s is the category that changes the most month to month. That first week after payday is likely when most of your %s money goes.",
				pct, topDriver, topDriver),
			Confidence:      core.ConfidenceHigh,
			Source:          core.SourceCrossReference,
			SuggestedAction: fmt.Sprintf("One option would be setting a %s budget for the first week after payday.", topDriver),
		})
	}

	// weekend multiple + weekend-heavy top driver
	if outputs.Temporal != nil && outputs.Temporal.Weekly != nil && impactValid {
		mult := outputs.Temporal.Weekly.WeekendSpendingMultiple
		if mult > 1.3 && isWeekendCategory(topDriver) {
			insights = append(insights, core.Insight{
				Title: fmt.Sprintf("Weekends are when your %s spending jumps", topDriver),
				Body: fmt.Sprintf(
					"You spend about %.2fx more on weekends than weekdays, and %s is the category that changes the most from month to month. Weekend %s is likely a big part of why your total spending shifts.",
					mult, topDriver, topDriver),
				Confidence: core.ConfidenceMedium,
				Source:     core.SourceCrossReference,
			})
		}
	}

	// spending spike + positive correlation with a related category
	if outputs.Anomalies != nil && len(outputs.Anomalies.Spikes) > 0 &&
		outputs.Correlations != nil && len(outputs.Correlations.Correlations) > 0 {
		spike := outputs.Anomalies.Spikes[0]
	corrLoop:
		for _, corr := range outputs.Correlations.Correlations {
			var related string
			switch {
			case strings.EqualFold(corr.CategoryA, spike.Category):
				related = corr.CategoryB
			case strings.EqualFold(corr.CategoryB, spike.Category):
				related = corr.CategoryA
			default:
				continue
			}
			if corr.Correlation > 0 {
				insights = append(insights, core.Insight{
					Title: fmt.Sprintf("Your %s and %s spending tend to rise together", spike.Category, related),
					Body: fmt.Sprintf(
						"%s jumped %.0f%% last month. When %s goes up, %s usually does too, so both categories may be climbing right now.",
						spike.Category, spike.SpikePct, spike.Category, related),
					Confidence: core.ConfidenceMedium,
					Source:     core.SourceCrossReference,
				})
				break corrLoop
			}
		}
	}

	// subscription overlap + price creep
	if outputs.Subscriptions != nil && len(outputs.Subscriptions.Overlaps) > 0 && len(outputs.Subscriptions.PriceCreep) > 0 {
		var totalCreep, overlapCost float64
		for _, pc := range outputs.Subscriptions.PriceCreep {
			totalCreep += pc.AnnualCostIncrease
		}
		for _, o := range outputs.Subscriptions.Overlaps {
			overlapCost += o.CombinedAnnual
		}
		if totalCreep > 0 {
			insights = append(insights, core.Insight{
				Title: "Subscription costs are growing from two directions",
				Body: fmt.Sprintf(
					"You have overlapping subscriptions ($%.2f/year combined) and prices are creeping up ($%.2f/year in increases). Together, your subscription spend is expanding both in count and per-unit cost.",
					overlapCost, totalCreep),
				Confidence:      core.ConfidenceHigh,
				DollarImpact:    totalCreep,
				Source:          core.SourceCrossReference,
				SuggestedAction: "One option would be auditing subscriptions for both overlap and price increases at the same time.",
			})
		}
	}

	// runway + top flexible variance driver. Essential categories are
	// never suggested as a place to spend less, so the driver here is
	// the highest-variance non-essential category, if any.
	if outputs.Resilience != nil && outputs.Resilience.Runway != nil && impactValid {
		runway := outputs.Resilience.Runway
		if runway.Valid && !runway.Surplus && runway.MonthsOfRunway > 0 {
			months := runway.MonthsOfRunway
			conf := core.ConfidenceMedium
			if months < 6 {
				conf = core.ConfidenceHigh
			}
			var flexDriver string
			for _, imp := range outputs.Impact.Impacts {
				if !core.IsEssential(imp.Category) {
					flexDriver = imp.Category
					break
				}
			}
			ins := core.Insight{
				Title: fmt.Sprintf("Your savings could cover about %.0f months of expenses", months),
				Body: fmt.Sprintf(
					"If your income stopped today, your current savings would last roughly %.0f months at your current spending pace.",
					months),
				Confidence: conf,
				Source:     core.SourceCrossReference,
			}
			if flexDriver != "" {
				ins.Body += fmt.Sprintf(" %s is the flexible category that changes the most; spending less there would stretch your savings further.", flexDriver)
				if months < 12 {
					ins.SuggestedAction = fmt.Sprintf("One option would be spending less on %s to make your savings last longer.", flexDriver)
				}
			}
			insights = append(insights, ins)
		}
	}

	if len(insights) > 0 {
		s.log.Debug().Int("count", len(insights)).Msg("cross-referenced compound insights")
	}
	return insights
}

func isWeekendCategory(category string) bool {
	switch core.NormalizeCategory(category) {
	case "dining", "entertainment", "transport", "shopping":
		return true
	}
	return false
}

// ----------------------------------------------------------------------------
// LLM supplementation
// ----------------------------------------------------------------------------

type llmInsight struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	DollarImpact float64 `json:"dollar_impact"`
	Confidence   string  `json:"confidence"`
	ActionOption string  `json:"action_option"`
}

// supplementWithLLM asks the model for additional insights, steering it
// away from topics the cross references already cover. A failed or
// malformed response yields nothing; the run never depends on the LLM.
func (s *Synthesizer) supplementWithLLM(ctx context.Context, outputs *ToolOutputs, profile *Profile, avoid map[string]bool) []core.Insight {
	summary := condenseOutputs(outputs, profile)
	if summary == "" {
		return nil
	}

	avoidLine := ""
	if len(avoid) > 0 {
		topics := make([]string, 0, len(avoid))
		for k := range avoid {
			topics = append(topics, k)
		}
		sort.Strings(topics)
		avoidLine = fmt.Sprintf("\n- AVOID these topics (already covered): %s. Find DIFFERENT angles.", strings.Join(topics, ", "))
	}

	prompt := fmt.Sprintf(`You are a spending intelligence agent. Generate 3-5 insights from this spending analysis.

RULES:
- Each insight: title, description, dollar_impact (annual, from the data), confidence (HIGH/MEDIUM/LOW), action_option
- Neutral framing. Never say "should", "bad", "problem", "waste", "too much"
- Frame actions as options: "One option would be..." not "You should..."
- Every insight MUST connect 2+ data points or reveal something non-obvious
- Each insight must be distinct - no two about the same category
- NEVER suggest reducing essentials (groceries, rent, healthcare, utilities, insurance)
- Plain language only - no statistical jargon%s

ANALYSIS SUMMARY:
%s

Return JSON array only: [{"title": "...", "description": "...", "dollar_impact": 0, "confidence": "HIGH", "action_option": "..."}]`, avoidLine, summary)

	raw, err := s.gen.Generate(ctx, prompt, 800)
	if err != nil {
		s.log.Warn().Err(err).Msg("llm synthesis failed")
		return nil
	}
	payload := llm.ExtractJSON(raw)
	if payload == "" {
		return nil
	}
	var parsed []llmInsight
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		var wrapper struct {
			Insights []llmInsight `json:"insights"`
		}
		if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
			s.log.Warn().Err(err).Msg("llm response not parseable")
			return nil
		}
		parsed = wrapper.Insights
	}

	var insights []core.Insight
	for _, li := range parsed {
		ins := core.Insight{
			Title:           li.Title,
			Body:            li.Description,
			Confidence:      parseConfidence(li.Confidence),
			DollarImpact:    li.DollarImpact,
			Source:          core.SourceLLM,
			SuggestedAction: li.ActionOption,
		}
		if !ValidateInsightFraming(ins) {
			s.log.Debug().Str("title", ins.Title).Msg("rejected llm insight")
			continue
		}
		insights = append(insights, ins)
	}
	return insights
}

func parseConfidence(s string) core.Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return core.ConfidenceHigh
	case "medium":
		return core.ConfidenceMedium
	}
	return core.ConfidenceLow
}

// condenseOutputs compresses the raw tool outputs into a few hundred
// tokens of signal so the prompt stays fast and reliable on any model.
func condenseOutputs(outputs *ToolOutputs, profile *Profile) string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}

	if profile != nil && profile.MonthlyAverage > 0 {
		add("Monthly average: $%.0f/mo over %d months. Trend: %s.", profile.MonthlyAverage, profile.MonthsCount, profile.SpendingTrend)
		if profile.MonthlyIncome > 0 {
			add("Income: $%.0f/mo. Net: $%.0f/mo.", profile.MonthlyIncome, profile.MonthlyIncome-profile.MonthlyAverage)
		}
	}

	if outputs.Impact != nil && outputs.Impact.Valid && len(outputs.Impact.Impacts) > 0 {
		top := outputs.Impact.Impacts
		if len(top) > 3 {
			top = top[:3]
		}
		var parts []string
		for _, c := range top {
			parts = append(parts, fmt.Sprintf("%s $%.0f/mo (%.0f%% of variation)", c.Category, c.MonthlyAvg, c.ImpactPct))
		}
		add("Top spending drivers: %s.", strings.Join(parts, ", "))
	}

	if outputs.Temporal != nil {
		if p := outputs.Temporal.Payday; p != nil && p.Detected {
			add("Payday detected: %.0f%% spent in first 7 days.", p.FirstWeekSpendPct)
		}
		if w := outputs.Temporal.Weekly; w != nil && w.WeekendSpendingMultiple > 1.1 {
			add("Weekend spending: %.1fx weekday average. Highest day: %s, lowest: %s.",
				w.WeekendSpendingMultiple, w.HighestSpendingDay, w.LowestSpendingDay)
		}
	}

	if subs := outputs.Subscriptions; subs != nil {
		if len(subs.Recurring) > 0 {
			add("Subscriptions: %d found, $%.0f/year total.", len(subs.Recurring), subs.TotalAnnual)
		}
		if len(subs.Overlaps) > 0 {
			var cost float64
			for _, o := range subs.Overlaps {
				cost += o.CombinedAnnual
			}
			add("Subscription overlaps: %d groups, $%.0f/year combined.", len(subs.Overlaps), cost)
		}
		if len(subs.PriceCreep) > 0 {
			var creep float64
			for _, pc := range subs.PriceCreep {
				creep += pc.AnnualCostIncrease
			}
			add("Price creep: %d subscriptions increasing, $%.0f/year in increases.", len(subs.PriceCreep), creep)
		}
	}

	if a := outputs.Anomalies; a != nil {
		if len(a.Spikes) > 0 {
			top := a.Spikes
			if len(top) > 3 {
				top = top[:3]
			}
			var parts []string
			for _, sp := range top {
				parts = append(parts, fmt.Sprintf("%s +%.0f%%", sp.Category, sp.SpikePct))
			}
			add("Recent spending spikes: %s.", strings.Join(parts, ", "))
		}
		if len(a.Outliers) > 0 {
			add("Unusual transactions: %d flagged (largest: $%.0f at %s).",
				len(a.Outliers), a.Outliers[0].Amount, a.Outliers[0].Merchant)
		}
	}

	if c := outputs.Correlations; c != nil && len(c.Correlations) > 0 {
		top := c.Correlations
		if len(top) > 3 {
			top = top[:3]
		}
		var parts []string
		for _, corr := range top {
			dir := "move together"
			if corr.Correlation < 0 {
				dir = "opposite"
			}
			parts = append(parts, fmt.Sprintf("%s<->%s (%s)", corr.CategoryA, corr.CategoryB, dir))
		}
		add("Spending connections: %s.", strings.Join(parts, ", "))
	}

	if r := outputs.Resilience; r != nil && r.Runway != nil && r.Runway.Valid {
		if r.Runway.Surplus {
			add("Savings runway: surplus (earning more than spending).")
		} else if r.Runway.MonthsOfRunway > 0 && r.Runway.MonthsOfRunway < 200 {
			add("Savings runway: %.0f months at current pace.", r.Runway.MonthsOfRunway)
		}
	}

	return strings.Join(lines, "\n")
}

// ----------------------------------------------------------------------------
// fact-checking, dedup, ranking, framing
// ----------------------------------------------------------------------------

// enforceFraming drops any insight that fails framing validation,
// regardless of where it came from.
func (s *Synthesizer) enforceFraming(insights []core.Insight) []core.Insight {
	kept := make([]core.Insight, 0, len(insights))
	for _, ins := range insights {
		if !ValidateInsightFraming(ins) {
			s.log.Debug().Str("title", ins.Title).Str("source", string(ins.Source)).Msg("rejected insight framing")
			continue
		}
		kept = append(kept, ins)
	}
	return kept
}

// factCheck caps LLM-claimed dollar impacts against amounts actually
// present in tool outputs. Cross-referenced insights skip the check;
// their numbers came from the tools in the first place. A claim above
// twice the largest verifiable amount is reduced to that amount and
// its confidence stepped down one level.
func (s *Synthesizer) factCheck(insights []core.Insight, outputs *ToolOutputs) []core.Insight {
	known := knownAmounts(outputs)
	var maxKnown float64
	for _, v := range known {
		if v > maxKnown {
			maxKnown = v
		}
	}
	for i := range insights {
		ins := &insights[i]
		if ins.Source == core.SourceCrossReference || ins.DollarImpact == 0 {
			continue
		}
		if maxKnown > 0 && ins.DollarImpact > maxKnown*2 {
			s.log.Debug().
				Float64("claimed", ins.DollarImpact).
				Float64("capped", maxKnown).
				Str("title", ins.Title).
				Msg("capped implausible dollar impact")
			ins.DollarImpact = maxKnown
			switch ins.Confidence {
			case core.ConfidenceHigh:
				ins.Confidence = core.ConfidenceMedium
			case core.ConfidenceMedium:
				ins.Confidence = core.ConfidenceLow
			}
		}
	}
	return insights
}

// knownAmounts pulls every verifiable annual dollar figure out of the
// tool outputs.
func knownAmounts(outputs *ToolOutputs) []float64 {
	var amounts []float64
	if subs := outputs.Subscriptions; subs != nil {
		for _, sub := range subs.Recurring {
			if sub.AnnualCost > 0 {
				amounts = append(amounts, sub.AnnualCost)
			}
		}
		for _, o := range subs.Overlaps {
			if o.CombinedAnnual > 0 {
				amounts = append(amounts, o.CombinedAnnual)
			}
		}
		for _, pc := range subs.PriceCreep {
			if pc.AnnualCostIncrease > 0 {
				amounts = append(amounts, pc.AnnualCostIncrease)
			}
		}
	}
	if outputs.Impact != nil {
		for _, imp := range outputs.Impact.Impacts {
			if imp.MonthlyAvg > 0 {
				amounts = append(amounts, imp.MonthlyAvg*12)
			}
		}
	}
	return amounts
}

// deduplicate removes insights covering topics already seen.
// Cross-referenced insights are considered first, and the first three
// insights always survive so thin runs still return something.
func (s *Synthesizer) deduplicate(insights []core.Insight) []core.Insight {
	prioritized := append([]core.Insight(nil), insights...)
	sort.SliceStable(prioritized, func(i, j int) bool {
		return prioritized[i].Source == core.SourceCrossReference && prioritized[j].Source != core.SourceCrossReference
	})

	seen := map[string]bool{}
	var deduped []core.Insight
	for _, ins := range prioritized {
		keys := extractTopics(strings.ToLower(ins.Title + " " + ins.Body))
		collision := false
		for _, k := range keys {
			if seen[k] {
				collision = true
				break
			}
		}
		if collision && len(deduped) >= 3 {
			s.log.Debug().Str("title", ins.Title).Msg("deduped overlapping insight")
			continue
		}
		for _, k := range keys {
			seen[k] = true
		}
		deduped = append(deduped, ins)
	}
	return deduped
}

// extractTopics returns every topic keyword present in the text.
func extractTopics(text string) []string {
	var keys []string
	for _, kw := range topicKeywords {
		if strings.Contains(text, kw) {
			keys = append(keys, kw)
		}
	}
	return keys
}

// rankInsights sorts by dollar impact descending, then by confidence.
func rankInsights(insights []core.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		if insights[i].DollarImpact != insights[j].DollarImpact {
			return insights[i].DollarImpact > insights[j].DollarImpact
		}
		return insights[i].Confidence.Rank() < insights[j].Confidence.Rank()
	})
}

// ValidateInsightFraming rejects insights that moralize, prescribe, use
// statistical jargon, or suggest trimming an essential category.
func ValidateInsightFraming(ins core.Insight) bool {
	text := strings.ToLower(ins.Title + " " + ins.Body + " " + ins.SuggestedAction)
	for _, word := range bannedWords {
		if strings.Contains(text, word) {
			return false
		}
	}
	for _, cat := range []string{
		"groceries", "grocery", "rent & housing", "health",
		"insurance", "bills & utilities", "education",
	} {
		for _, verb := range []string{"reduce ", "cut ", "lower ", "spend less on ", "spending less on "} {
			if strings.Contains(text, verb+cat) {
				return false
			}
		}
	}
	return true
}
