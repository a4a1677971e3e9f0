package module

import (
	"path/filepath"

	"connectors/internal/platform/config"
	"connectors/internal/platform/validate"
)

// Backends a checkpoint store can run on
const (
	BackendFile = "file"
	BackendPG   = "pg"
)

// Options holds configuration options for the checkpoint store
type Options struct {
	Backend   string `env:"CHECKPOINT_BACKEND" validate:"oneof=file pg"`
	Path      string `env:"CHECKPOINT_PATH" validate:"required_if=Backend file"`
	Connector string `env:"CONNECTOR_NAME" validate:"required,ident"`
}

// FromConfig reads CHECKPOINT_* plus the connector name
func FromConfig(cfg config.Conf) Options {
	cp := cfg.Prefix("CHECKPOINT_")
	dir := cp.MayString("DIR", "data")
	return Options{
		Backend:   cp.MayEnum("BACKEND", BackendFile, BackendFile, BackendPG),
		Path:      cp.MayString("PATH", filepath.Join(dir, "context.json")),
		Connector: cfg.Prefix("CONNECTOR_").MayString("NAME", "connector"),
	}
}

// Validate checks the options once at startup
func (o Options) Validate() error { return validate.Struct(o) }
