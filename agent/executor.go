package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Shirly8/Sift/core"
	"github.com/Shirly8/Sift/simulator"
	"github.com/Shirly8/Sift/tools"
)

// maxConcurrentTools bounds the fan-out. The tools are CPU-bound over
// the same table; more workers than this just thrashes.
const maxConcurrentTools = 4

// ============================================================================
// TOOL OUTPUTS
// ============================================================================

// ToolOutputs holds every tool's typed result. A nil field means the
// tool did not run (skipped or failed); Errors carries per-tool
// failures without sinking the run.
type ToolOutputs struct {
	Temporal      *tools.TemporalResult     `json:"temporal_patterns,omitempty"`
	Anomalies     *tools.AnomalyResult      `json:"anomaly_detection,omitempty"`
	Subscriptions *tools.SubscriptionResult `json:"subscription_hunter,omitempty"`
	Correlations  *tools.CorrelationResult  `json:"correlation_engine,omitempty"`
	Impact        *tools.ImpactResult       `json:"spending_impact,omitempty"`
	Resilience    *tools.ResilienceResult   `json:"financial_resilience,omitempty"`

	Errors map[string]string `json:"errors,omitempty"`
}

// SkippedTool records a tool the plan gated off and why.
type SkippedTool struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ExecutionReport is the outcome of running one plan.
type ExecutionReport struct {
	ToolsRun      []string      `json:"tools_run"`
	ToolsSkipped  []SkippedTool `json:"tools_skipped"`
	Outputs       *ToolOutputs  `json:"results"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// ============================================================================
// EXECUTOR
// ============================================================================

// Executor fans the enabled tools out over a bounded worker group.
type Executor struct {
	engine *simulator.Engine
	sink   core.ProgressSink
	log    zerolog.Logger
}

// NewExecutor creates an executor. The simulator engine backs the
// financial-resilience tool; sink may be nil.
func NewExecutor(engine *simulator.Engine, sink core.ProgressSink, log zerolog.Logger) *Executor {
	if sink == nil {
		sink = core.NopSink{}
	}
	return &Executor{engine: engine, sink: sink, log: log}
}

// Execute runs every enabled tool in the plan concurrently, at most
// maxConcurrentTools at a time. The copy handed to the tools is
// sign-normalized and has uncategorized rows dropped; they would skew
// every category-based pass.
// A tool failure is recorded in Outputs.Errors and still counts as run;
// only context cancellation aborts the whole execution.
func (e *Executor) Execute(ctx context.Context, txns []core.Transaction, plan *Plan) (*ExecutionReport, error) {
	table := core.Normalize(core.Categorized(txns))
	start := time.Now()

	report := &ExecutionReport{Outputs: &ToolOutputs{}}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTools)

	for _, planned := range plan.Tools {
		if !planned.Enabled {
			report.ToolsSkipped = append(report.ToolsSkipped, SkippedTool{Name: planned.Name, Reason: planned.Reason})
			e.log.Debug().Str("tool", planned.Name).Str("reason", planned.Reason).Msg("tool skipped")
			continue
		}
		name := planned.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			toolStart := time.Now()
			e.sink.Publish(core.ProgressEvent{Stage: "tool", Tool: name, Message: "running"})

			err := e.runTool(name, table, report.Outputs, &mu)

			mu.Lock()
			if err != nil {
				if report.Outputs.Errors == nil {
					report.Outputs.Errors = map[string]string{}
				}
				report.Outputs.Errors[name] = err.Error()
				e.log.Error().Str("tool", name).Err(err).Msg("tool failed")
			}
			report.ToolsRun = append(report.ToolsRun, name)
			mu.Unlock()

			e.sink.Publish(core.ProgressEvent{Stage: "tool", Tool: name, Message: "done", Elapsed: time.Since(toolStart)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// report order follows plan priority, not completion order
	ordered := report.ToolsRun[:0]
	ran := map[string]bool{}
	for _, name := range report.ToolsRun {
		ran[name] = true
	}
	for _, planned := range plan.Tools {
		if ran[planned.Name] {
			ordered = append(ordered, planned.Name)
		}
	}
	report.ToolsRun = ordered

	report.ExecutionTime = time.Since(start)
	e.log.Info().
		Int("run", len(report.ToolsRun)).
		Int("skipped", len(report.ToolsSkipped)).
		Dur("elapsed", report.ExecutionTime).
		Msg("analysis complete")
	return report, nil
}

// runTool dispatches one tool by name, converting panics into errors so
// one bad tool cannot take down the run.
func (e *Executor) runTool(name string, table []core.Transaction, out *ToolOutputs, mu *sync.Mutex) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panic: %v", r)
		}
	}()

	switch name {
	case ToolTemporalPatterns:
		result := tools.DetectTemporalPatterns(table)
		mu.Lock()
		out.Temporal = result
		mu.Unlock()
	case ToolAnomalyDetection:
		result := tools.DetectAnomalies(table)
		mu.Lock()
		out.Anomalies = result
		mu.Unlock()
	case ToolSubscriptionHunter:
		result := tools.HuntSubscriptions(table)
		mu.Lock()
		out.Subscriptions = result
		mu.Unlock()
	case ToolCorrelationEngine:
		result := tools.CalculateCategoryCorrelations(table)
		mu.Lock()
		out.Correlations = result
		mu.Unlock()
	case ToolSpendingImpact:
		result := tools.FitImpactModel(table)
		mu.Lock()
		out.Impact = result
		mu.Unlock()
	case ToolFinancialResilience:
		result, rerr := tools.RunFinancialResilience(e.engine, table)
		if rerr != nil {
			return rerr
		}
		mu.Lock()
		out.Resilience = result
		mu.Unlock()
	default:
		return fmt.Errorf("no such tool %q", name)
	}
	return nil
}
