// Package module wires the read only status endpoints
package module

import (
	"net/http"
	"time"

	"connectors/internal/modkit"
	phttp "connectors/internal/platform/net/http"
	"connectors/internal/platform/net/middleware"
	statushttp "connectors/internal/services/status/http"
	"connectors/internal/services/status/service"
)

// Ports exposes the assembled status service
type Ports struct {
	Status *service.Svc
}

// Module implements the status module
type Module struct {
	deps  modkit.Deps
	mws   []func(http.Handler) http.Handler
	ports Ports
}

// New builds the module; STATUS_SLOW and STATUS_CORS_ORIGINS tune the middleware chain
func New(deps modkit.Deps, sd service.Deps) *Module {
	cfg := deps.Cfg.Prefix("STATUS_")
	mws := append(middleware.Defaults(cfg.MayDuration("SLOW", time.Second)),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: cfg.MayCSV("CORS_ORIGINS", nil)}))
	return &Module{
		deps:  deps,
		mws:   mws,
		ports: Ports{Status: service.New(sd, nil)},
	}
}

// MountRoutes mounts the status routes behind the default chain
func (m *Module) MountRoutes(r phttp.Router) {
	r.Group(func(g phttp.Router) {
		g.Use(m.mws...)
		statushttp.Register(g, m.ports.Status)
	})
}

// Name returns the module name
func (m *Module) Name() string { return "status" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
