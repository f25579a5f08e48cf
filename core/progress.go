package core

import "time"

// ============================================================================
// PROGRESS REPORTING
// ============================================================================

// ProgressEvent is one step of an analysis run, emitted as it happens.
type ProgressEvent struct {
	Stage   string        `json:"stage"` // "profile", "plan", "tool", "synthesis", "done"
	Tool    string        `json:"tool,omitempty"`
	Message string        `json:"message"`
	Elapsed time.Duration `json:"elapsed_ms,omitempty"`
}

// ProgressSink receives analysis progress. Implementations must be safe
// for concurrent use; tool events arrive from multiple goroutines.
type ProgressSink interface {
	Publish(event ProgressEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(ProgressEvent) {}
