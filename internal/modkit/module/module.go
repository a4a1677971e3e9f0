// Package module defines the contract connector modules implement and a bootstrap registry
package module

import (
	"context"

	perr "connectors/internal/platform/errors"
	phttp "connectors/internal/platform/net/http"
)

// Module is what main wires: optional routes plus a ports bundle
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}

// Migrator is implemented by modules that own durable schema
type Migrator interface {
	Migrate(ctx context.Context) error
}

// MigrateAll runs Migrate on every module that has one, in order
func MigrateAll(ctx context.Context, mods ...Module) error {
	for _, m := range mods {
		mg, ok := m.(Migrator)
		if !ok {
			continue
		}
		if err := mg.Migrate(ctx); err != nil {
			return perr.WithOp(err, m.Name()+".migrate")
		}
	}
	return nil
}
