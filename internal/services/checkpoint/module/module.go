// Package module provides the checkpoint module implementation
package module

import (
	"context"

	"connectors/internal/modkit"
	"connectors/internal/modkit/repokit"
	perr "connectors/internal/platform/errors"
	phttp "connectors/internal/platform/net/http"
	"connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/checkpoint/repo"
	"connectors/internal/services/checkpoint/service"
)

// Ports defines the checkpoint module ports
type Ports struct {
	Store domain.StorePort
}

// Module implements the checkpoint module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the checkpoint module from deps.Cfg
// the pg backend requires deps.PG
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	return NewWithOptions(deps, opts)
}

// NewWithOptions constructs the module from explicit options
func NewWithOptions(deps modkit.Deps, opts Options) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var backend domain.Backend
	switch opts.Backend {
	case BackendPG:
		if deps.PG == nil {
			return nil, perr.WithField(perr.InvalidArgf("checkpoint backend pg needs postgres enabled"), "CHECKPOINT_BACKEND")
		}
		backend = repo.NewPGBackend(deps.PG, opts.Connector)
	default:
		backend = repo.NewFile(opts.Path)
	}

	deps.Logger("checkpoint").Info().Str("backend", opts.Backend).Str("connector", opts.Connector).Msg("checkpoint store ready")

	m := &Module{deps: deps, opts: opts}
	m.ports = Ports{Store: service.New(backend)}
	return m, nil
}

// Migrate prepares durable storage; a no-op for the file backend
func (m *Module) Migrate(ctx context.Context) error {
	if m.opts.Backend != BackendPG {
		return nil
	}
	return repo.EnsureSchema(ctx, repokit.PG(ctx, m.deps.PG))
}

// Options returns the resolved options
func (m *Module) Options() Options { return m.opts }

// Name returns the module name
func (m *Module) Name() string { return "checkpoint" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op as checkpoint has no routes
func (m *Module) MountRoutes(_ phttp.Router) {}
