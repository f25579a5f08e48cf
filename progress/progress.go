// Package progress provides ProgressSink implementations: a structured
// log sink and a WebSocket hub that streams analysis steps to connected
// clients.
package progress

import (
	"github.com/rs/zerolog"

	"github.com/Shirly8/Sift/core"
)

// LogSink writes every progress event to a zerolog logger.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink over the given logger.
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Publish implements core.ProgressSink.
func (s *LogSink) Publish(event core.ProgressEvent) {
	e := s.log.Info().Str("stage", event.Stage)
	if event.Tool != "" {
		e = e.Str("tool", event.Tool)
	}
	if event.Elapsed > 0 {
		e = e.Dur("elapsed", event.Elapsed)
	}
	e.Msg(event.Message)
}

// Multi fans one event out to several sinks.
type Multi []core.ProgressSink

// Publish implements core.ProgressSink.
func (m Multi) Publish(event core.ProgressEvent) {
	for _, sink := range m {
		sink.Publish(event)
	}
}
