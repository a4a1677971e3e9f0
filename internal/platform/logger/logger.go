// Package logger wraps zerolog for the connector binaries
// a poll cycle and its stream travel on the context and are stamped onto every line by C
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"connectors/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the logging type handed around the codebase
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level       string
	Format      string // console or json
	Service     string
	Component   string
	Writer      io.Writer
	WithCaller  bool
	SampleEvery int
	Fields      map[string]string
}

// FromEnv reads LOG_* through the raw view
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       rc.Get("LEVEL", "info"),
		Format:      rc.Get("FORMAT", "console"),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
		Fields:      rc.Fields("FIELDS"),
	}
}

var (
	once sync.Once
	root atomic.Pointer[Logger]
)

// New builds a logger from opt without touching the process root
func New(opt Options) Logger {
	var w io.Writer = os.Stdout
	if opt.Writer != nil {
		w = opt.Writer
	}
	if opt.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	b := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		b = b.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		b = b.Str("service", opt.Service)
	}
	if opt.Component != "" {
		b = b.Str("component", opt.Component)
	}
	for k, v := range opt.Fields {
		b = b.Str(k, v)
	}
	if opt.WithCaller {
		b = b.Caller()
	}

	l := b.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

// Init installs the process root logger; only the first call has effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := New(opt)
		root.Store(&l)
	})
}

// Get returns the root logger, initialising it from env on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// parseLevel falls back to info for empty or unknown input
func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type scopeKey struct{}

type scope struct {
	cycleID   string
	connector string
	stream    string
}

func scopeOf(ctx context.Context) scope {
	s, _ := ctx.Value(scopeKey{}).(scope)
	return s
}

// WithCycle marks ctx as belonging to one poll cycle of connector
func WithCycle(ctx context.Context, cycleID, connector string) context.Context {
	if cycleID == "" && connector == "" {
		return ctx
	}
	s := scopeOf(ctx)
	if cycleID != "" {
		s.cycleID = cycleID
	}
	if connector != "" {
		s.connector = connector
	}
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithStream marks ctx with the checkpointed stream being processed
func WithStream(ctx context.Context, stream string) context.Context {
	if stream == "" {
		return ctx
	}
	s := scopeOf(ctx)
	s.stream = stream
	return context.WithValue(ctx, scopeKey{}, s)
}

// C returns the root logger enriched with the cycle scope carried by ctx
func C(ctx context.Context) *Logger { return Scoped(ctx, Get()) }

// Scoped stamps the cycle scope carried by ctx onto l
func Scoped(ctx context.Context, l *Logger) *Logger {
	s := scopeOf(ctx)
	if s == (scope{}) {
		return l
	}
	b := l.With()
	if s.cycleID != "" {
		b = b.Str("cycle_id", s.cycleID)
	}
	if s.connector != "" {
		b = b.Str("connector", s.connector)
	}
	if s.stream != "" {
		b = b.Str("stream", s.stream)
	}
	out := b.Logger()
	return &out
}

// Named returns a child of the root logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
