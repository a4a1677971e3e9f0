// Package module provides the poller module implementation
package module

import (
	"connectors/internal/adapters/httpx"
	"connectors/internal/adapters/intake/batchapi"
	"connectors/internal/adapters/intake/chsink"
	"connectors/internal/adapters/intake/dryrun"
	"connectors/internal/adapters/metrics"
	"connectors/internal/modkit"
	perr "connectors/internal/platform/errors"
	phttp "connectors/internal/platform/net/http"
	ckdomain "connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/poller/domain"
	"connectors/internal/services/poller/service"
)

// Ports defines the poller module ports
type Ports struct {
	Runner  domain.RunnerPort
	Status  domain.StatusPort
	Metrics domain.MetricsReader
}

// Module implements the poller module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the poller module from deps.Cfg
// profile overrides CONNECTOR_PROFILE when not empty
func New(deps modkit.Deps, checkpoints ckdomain.StorePort, profile string, extra ...service.Option) (*Module, error) {
	return NewWithOptions(deps, checkpoints, FromConfig(deps.Cfg, profile), extra...)
}

// NewWithOptions wires sources, forwarder, metrics and streams from explicit options
func NewWithOptions(deps modkit.Deps, checkpoints ckdomain.StorePort, opts Options, extra ...service.Option) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if checkpoints == nil {
		return nil, perr.InvalidArgf("poller needs a checkpoint store")
	}

	fwd, err := newForwarder(deps, opts)
	if err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry()
	svcOpts := append([]service.Option{service.WithMetrics(metrics.Fanout{registry, metrics.NewLogSink()})}, extra...)
	svc := service.New(service.Config{
		Connector: opts.Connector,
		IntakeKey: opts.Intake.Key,
		Frequency: opts.Frequency,
	}, svcOpts...)

	env := service.Env{
		Checkpoints: checkpoints,
		Forwarder:   svc.Forwarder(fwd),
		Metrics:     svc.Metrics(),
		Limiter:     newLimiter(opts.Source.RatePerMinute),
		Threshold:   opts.BatchSize,
		Now:         svc.Now,
	}
	streams, err := buildStreams(opts, env)
	if err != nil {
		return nil, err
	}
	svc.Add(streams...)

	deps.Logger("poller").Info().
		Str("connector", opts.Connector).
		Str("profile", opts.Profile).
		Str("intake", opts.Intake.Kind).
		Int("streams", len(streams)).
		Dur("frequency", opts.Frequency).
		Msg("poller wired")

	m := &Module{deps: deps, opts: opts}
	m.ports = Ports{Runner: svc, Status: svc, Metrics: registry}
	return m, nil
}

func newForwarder(deps modkit.Deps, opts Options) (domain.Forwarder, error) {
	switch opts.Intake.Kind {
	case IntakeClickhouse:
		if deps.CH == nil {
			return nil, perr.WithField(perr.InvalidArgf("clickhouse intake needs clickhouse enabled"), "INTAKE_KIND")
		}
		return chsink.New(deps.CH, opts.Connector, opts.Intake.Chunk), nil
	case IntakeDryRun:
		return dryrun.New(), nil
	default:
		c := httpx.New(httpx.Options{
			BaseURL:    opts.Intake.URL,
			MaxRetries: opts.Intake.Retries,
			Name:       "intake",
		})
		return batchapi.New(c, batchapi.Options{Key: opts.Intake.Key, Chunk: opts.Intake.Chunk}), nil
	}
}

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return "poller" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as the poller has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
