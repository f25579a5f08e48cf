package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shirly8/Sift/core"
	"github.com/Shirly8/Sift/llm"
	"github.com/Shirly8/Sift/simulator"
)

// ============================================================================
// AGENT
// ============================================================================

// Config configures the agent.
type Config struct {
	// Generator supplements cross-referenced insights. Nil disables
	// LLM synthesis; everything else still runs.
	Generator llm.Generator

	// Sink receives progress events. Nil discards them.
	Sink core.ProgressSink

	// Engine backs projections, stress tests, and the resilience
	// tool. Nil creates a default engine.
	Engine *simulator.Engine

	// Sessions stores reports per session. Nil creates a default
	// store.
	Sessions *Sessions

	// Logger for structured logging.
	Logger zerolog.Logger
}

// Agent is the full pipeline: profile, plan, execute, synthesize.
type Agent struct {
	engine      *simulator.Engine
	executor    *Executor
	synthesizer *Synthesizer
	sessions    *Sessions
	sink        core.ProgressSink
	log         zerolog.Logger
}

// New creates an agent. Returns an error only if the session store
// cannot be built.
func New(cfg Config) (*Agent, error) {
	engine := cfg.Engine
	if engine == nil {
		engine = simulator.New(simulator.WithLogger(cfg.Logger))
	}
	sink := cfg.Sink
	if sink == nil {
		sink = core.NopSink{}
	}
	sessions := cfg.Sessions
	if sessions == nil {
		var err error
		sessions, err = NewSessions(0, 0)
		if err != nil {
			return nil, err
		}
	}
	return &Agent{
		engine:      engine,
		executor:    NewExecutor(engine, sink, cfg.Logger),
		synthesizer: NewSynthesizer(cfg.Generator, cfg.Logger),
		sessions:    sessions,
		sink:        sink,
		log:         cfg.Logger,
	}, nil
}

// Sessions exposes the session store for callers that key work by
// session.
func (a *Agent) Sessions() *Sessions {
	return a.sessions
}

// Report is the full output of one analysis run.
type Report struct {
	RunID         string         `json:"run_id"`
	Profile       *Profile       `json:"profile"`
	Plan          *Plan          `json:"plan"`
	ToolsRun      []string       `json:"tools_run"`
	ToolsSkipped  []SkippedTool  `json:"tools_skipped"`
	Outputs       *ToolOutputs   `json:"results"`
	Insights      []core.Insight `json:"insights"`
	SavingsPlan   *SavingsPlan   `json:"savings_plan"`
	ExecutionTime time.Duration  `json:"execution_time"`
}

// Run executes the full pipeline over a table: profile the data, plan
// which tools can run, fan them out, synthesize insights, and build the
// savings plan.
func (a *Agent) Run(ctx context.Context, txns []core.Transaction) (*Report, error) {
	runID := uuid.NewString()
	log := a.log.With().Str("run_id", runID).Logger()

	a.sink.Publish(core.ProgressEvent{Stage: "profile", Message: "profiling data"})
	profile := BuildProfile(txns)
	log.Info().
		Int("transactions", profile.TransactionCount).
		Int("days", profile.DateRangeDays).
		Int("categories", profile.CategoryCount).
		Bool("income", profile.HasIncome).
		Msg("data profiled")

	a.sink.Publish(core.ProgressEvent{Stage: "plan", Message: "planning analysis"})
	plan := PlanAnalysis(profile)
	log.Info().Strs("enabled", plan.Enabled()).Msg("analysis planned")

	exec, err := a.executor.Execute(ctx, txns, plan)
	if err != nil {
		return nil, err
	}

	a.sink.Publish(core.ProgressEvent{Stage: "synthesis", Message: "synthesizing insights"})
	insights := a.synthesizer.Synthesize(ctx, exec.Outputs, profile)
	savings := GenerateSavingsPlan(core.Normalize(core.Categorized(txns)), exec.Outputs, profile)

	report := &Report{
		RunID:         runID,
		Profile:       profile,
		Plan:          plan,
		ToolsRun:      exec.ToolsRun,
		ToolsSkipped:  exec.ToolsSkipped,
		Outputs:       exec.Outputs,
		Insights:      insights,
		SavingsPlan:   savings,
		ExecutionTime: exec.ExecutionTime,
	}
	a.sink.Publish(core.ProgressEvent{Stage: "done", Message: "analysis complete", Elapsed: exec.ExecutionTime})
	return report, nil
}

// RunSession runs the pipeline for one session, rejecting a second
// concurrent run for the same session and storing the finished report
// for later retrieval via Sessions().Get.
func (a *Agent) RunSession(ctx context.Context, sessionID string, txns []core.Transaction) (*Report, error) {
	if err := a.sessions.begin(sessionID); err != nil {
		return nil, err
	}
	report, err := a.Run(ctx, txns)
	if err != nil {
		a.sessions.finish(sessionID, nil)
		return nil, err
	}
	a.sessions.finish(sessionID, report)
	return report, nil
}

// StressTest runs one preset scenario against the table.
func (a *Agent) StressTest(txns []core.Transaction, scenario simulator.ScenarioType) (*simulator.StressResult, error) {
	return a.engine.StressTest(core.Categorized(txns), scenario)
}

// Projection projects spending forward, optionally under a scenario.
func (a *Agent) Projection(txns []core.Transaction, months int, scenario *simulator.Scenario) (*simulator.Projection, error) {
	return a.engine.RunProjection(core.Categorized(txns), months, scenario)
}
