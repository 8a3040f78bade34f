package matcache

import (
	"github.com/rs/zerolog"
)

// LogObserver reports resolve events as structured log lines. This is
// the default sink wired up by cmd/minv so that cache hits are visible
// without inspecting holder state.
type LogObserver struct {
	logger zerolog.Logger
}

// NewLogObserver creates a LogObserver writing through logger.
func NewLogObserver(logger zerolog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) On(eventData EventData) {
	evt := o.logger.Info().
		Int("rows", eventData.Rows).
		Int("cols", eventData.Cols)

	switch eventData.Event {
	case EventHit:
		evt.Msg("Returning cached inverse")
	case EventMiss:
		evt.Msg("Computing inverse")
	}
}
