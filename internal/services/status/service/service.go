// Package service assembles status documents from the poller and checkpoint ports
package service

import (
	"context"
	"sort"
	"time"

	"connectors/internal/modkit/repokit"
	perr "connectors/internal/platform/errors"
	ckdomain "connectors/internal/services/checkpoint/domain"
	pdomain "connectors/internal/services/poller/domain"
	"connectors/internal/services/status/domain"
)

// Pinger is any dependency that can report readiness
type Pinger = repokit.Pinger

// Deps are the read ports the status surface draws on
// Metrics and Pingers are optional
type Deps struct {
	Connector   string
	Loop        pdomain.StatusPort
	Checkpoints ckdomain.StorePort
	Metrics     pdomain.MetricsReader
	Pingers     map[string]Pinger
}

// Svc answers status queries
type Svc struct {
	deps    Deps
	started time.Time
	now     func() time.Time
}

// New builds the service; now defaults to time.Now
func New(deps Deps, now func() time.Time) *Svc {
	if now == nil {
		now = time.Now
	}
	return &Svc{deps: deps, started: now().UTC(), now: now}
}

// Health is OK until the loop stops
func (s *Svc) Health() domain.Health {
	state := s.deps.Loop.State()
	return domain.Health{
		OK:        state != pdomain.StateStopped,
		Connector: s.deps.Connector,
		State:     state,
		Started:   s.started,
		Now:       s.now().UTC(),
	}
}

// Ready probes every pinger under a short deadline
func (s *Svc) Ready(ctx context.Context) domain.Readiness {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.deps.Pingers))
	for name := range s.deps.Pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	out := domain.Readiness{Status: "ok", Checks: make([]domain.Check, 0, len(names)), Now: s.now().UTC()}
	for _, name := range names {
		p := s.deps.Pingers[name]
		if p == nil {
			out.Checks = append(out.Checks, domain.Check{Name: name, Status: "skipped"})
			continue
		}
		if err := repokit.Probe(ctx, name, p); err != nil {
			out.Status = "fail"
			out.Checks = append(out.Checks, domain.Check{Name: name, Status: "fail", Error: err.Error()})
			continue
		}
		out.Checks = append(out.Checks, domain.Check{Name: name, Status: "ok"})
	}
	return out
}

// Report reads loop state, checkpoints and metrics
func (s *Svc) Report(ctx context.Context) (domain.Report, error) {
	cps, err := s.deps.Checkpoints.Snapshot(ctx)
	if err != nil {
		return domain.Report{}, perr.WithOp(err, "status.checkpoints")
	}
	now := s.now().UTC()
	r := domain.Report{
		Connector:   s.deps.Connector,
		State:       s.deps.Loop.State(),
		Started:     s.started,
		Uptime:      int64(now.Sub(s.started) / time.Second),
		Checkpoints: cps,
		Metrics:     []pdomain.MetricSample{},
	}
	if last, ok := s.deps.Loop.LastCycle(); ok {
		r.LastCycle = &last
	}
	if s.deps.Metrics != nil {
		r.Metrics = s.deps.Metrics.Snapshot()
	}
	return r, nil
}
