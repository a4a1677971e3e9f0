package pg

import (
	"context"
	"strings"

	"connectors/internal/platform/logger"

	"github.com/rs/zerolog"
)

const maxLoggedSQL = 512

// QueryEvent is one statement as the adapter saw it
type QueryEvent struct {
	SQL       string
	Args      any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives every statement the adapter runs
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs statements at debug through base whatever the root level is,
// with the poll cycle and stream taken from the query ctx
func Tracer(base logger.Logger) QueryTracer {
	return &zlTracer{log: base.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	l := logger.Scoped(ctx, &z.log)
	var e *zerolog.Event
	switch {
	case ev.Err != nil:
		e = l.Error().Err(ev.Err)
	case ev.Slow:
		e = l.Warn()
	default:
		e = l.Debug()
	}
	e.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000).
		Bool("slow", ev.Slow).
		Str("sql", squash(ev.SQL)).
		Interface("args", ev.Args).
		Msg("pg query")
}

// squash folds whitespace and caps the statement length
func squash(sql string) string {
	s := strings.Join(strings.Fields(sql), " ")
	if len(s) > maxLoggedSQL {
		s = s[:maxLoggedSQL] + "..."
	}
	return s
}
