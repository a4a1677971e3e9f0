package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"connectors/internal/modkit"
	"connectors/internal/modkit/module"
	"connectors/internal/modkit/repokit"
	"connectors/internal/platform/config"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"
	phttp "connectors/internal/platform/net/http"
	"connectors/internal/platform/store"

	ckmod "connectors/internal/services/checkpoint/module"
	pollmod "connectors/internal/services/poller/module"
	statusmod "connectors/internal/services/status/module"
	statussvc "connectors/internal/services/status/service"

	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		fProfile = flag.String("profile", "", "connector profile: paged | expanding | blob (overrides CONNECTOR_PROFILE)")
		fOnce    = flag.Bool("once", false, "run a single cycle and exit")
		fStatus  = flag.Bool("status", true, "serve /healthz, /readyz and /status on STATUS_ADDR")
	)
	flag.Parse()
	os.Exit(run(*fProfile, *fOnce, *fStatus))
}

func run(profile string, once, serveStatus bool) int {
	lo := logger.FromEnv()
	if lo.Service == "" {
		lo.Service = "intake-connector"
	}
	logger.Init(lo)
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	usePG := root.Prefix("CHECKPOINT_").MayEnum("BACKEND", ckmod.BackendFile, ckmod.BackendFile, ckmod.BackendPG) == ckmod.BackendPG
	useCH := root.Prefix("INTAKE_").MayEnum("KIND", pollmod.IntakeHTTP, pollmod.IntakeHTTP, pollmod.IntakeClickhouse, pollmod.IntakeDryRun) == pollmod.IntakeClickhouse

	st, err := store.Open(ctx, store.Config{
		AppName: "intake-connector",
		PG: store.PGConfig{
			Enabled:     usePG,
			URL:         pgCfg.MayString("DBURL", ""),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 2)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:   useCH,
			URL:       chCfg.MayString("DBURL", ""),
			ClientTag: "intake",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	if err := repokit.Guard(ctx, st); err != nil {
		l.Error().Err(err).Msg("store not ready")
		return 1
	}

	deps := modkit.Deps{Cfg: root, PG: st.PG, CH: st.CH, Log: *l}

	ck, err := ckmod.New(deps)
	if err != nil {
		l.Error().Err(err).Str("field", fieldOf(err)).Msg("checkpoint config invalid")
		return 2
	}
	if err := module.MigrateAll(ctx, ck); err != nil {
		l.Error().Err(err).Msg("checkpoint schema failed")
		return 1
	}
	module.Register(ck)
	ckPorts := module.MustPortsOf[ckmod.Ports](ck)

	pm, err := pollmod.New(deps, ckPorts.Store, profile)
	if err != nil {
		l.Error().Err(err).Str("field", fieldOf(err)).Msg("poller config invalid")
		return 2
	}
	module.Register(pm)
	ports := module.MustPortsOf[pollmod.Ports](pm)

	if once {
		rep, err := ports.Runner.RunOnce(ctx)
		if err != nil {
			l.Error().Err(err).Str("cycle_id", rep.ID).Str("class", rep.Class).Msg("cycle failed")
			return 1
		}
		l.Info().Str("cycle_id", rep.ID).Int("forwarded", rep.Forwarded).Dur("duration", rep.Duration).Msg("cycle done")
		return 0
	}

	l.Info().Strs("modules", module.Names()).Str("connector", pm.Options().Connector).Msg("connector starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ports.Runner.Run(gctx) })

	if serveStatus {
		sm := statusmod.New(deps, statussvc.Deps{
			Connector:   pm.Options().Connector,
			Loop:        ports.Status,
			Checkpoints: ckPorts.Store,
			Metrics:     ports.Metrics,
			Pingers:     pingers(st),
		})
		module.Register(sm)

		srv := phttp.NewServer(root)
		sm.MountRoutes(srv.Router())

		// a fatal loop error cancels gctx and takes the server down with it
		g.Go(func() error { return srv.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		l.Error().Err(err).Str("class", perr.Classify(err).String()).Msg("connector stopped")
		return 1
	}
	return 0
}

func pingers(st *store.Store) map[string]statussvc.Pinger {
	out := map[string]statussvc.Pinger{}
	for name, p := range st.Pingers() {
		out[name] = p
	}
	return out
}

func fieldOf(err error) string {
	if e, ok := perr.As(err); ok {
		return e.Field()
	}
	return ""
}
