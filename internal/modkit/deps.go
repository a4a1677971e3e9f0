// Package modkit carries what main hands every module
package modkit

import (
	"connectors/internal/modkit/repokit"
	"connectors/internal/platform/config"
	"connectors/internal/platform/logger"
	"connectors/internal/platform/store"
)

// Deps are the process level dependencies; PG and CH are nil when their backend is off
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// Logger returns Log tagged with component; a zero Log stays silent
func (d Deps) Logger(component string) *logger.Logger {
	l := d.Log.With().Str("component", component).Logger()
	return &l
}
