// Package service implements the poll loop and the checkpointed streams it runs
package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"
	"connectors/internal/services/poller/domain"

	"github.com/google/uuid"
)

// Config holds loop settings
type Config struct {
	Connector string
	IntakeKey string
	// Frequency is the target interval between cycle starts
	Frequency time.Duration
}

// Svc runs streams in cycles
// cycles never overlap and streams within a cycle run in the order they were added
type Svc struct {
	cfg     Config
	streams []domain.Stream
	metrics domain.MetricsSink

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
	newID func() string

	mu    sync.RWMutex
	state domain.State
	last  *domain.CycleReport
}

// Option customises a Svc
type Option func(*Svc)

// WithClock swaps the time source and the cooldown sleep
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) error) Option {
	return func(s *Svc) {
		if now != nil {
			s.now = now
		}
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithMetrics sets the sink; a nil sink discards everything
func WithMetrics(m domain.MetricsSink) Option {
	return func(s *Svc) { s.metrics = guardSink(m) }
}

// WithIDs swaps the cycle id generator
func WithIDs(fn func() string) Option {
	return func(s *Svc) { s.newID = fn }
}

// New constructs a Svc with no streams
func New(cfg Config, opts ...Option) *Svc {
	s := &Svc{
		cfg:     cfg,
		metrics: nopSink{},
		now:     time.Now,
		sleep:   sleepCtx,
		newID:   uuid.NewString,
		state:   domain.StateIdle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Add appends streams; call before Run
func (s *Svc) Add(streams ...domain.Stream) { s.streams = append(s.streams, streams...) }

// Now is the loop clock, shared with streams so tests drive a single clock
func (s *Svc) Now() time.Time { return s.now() }

// Metrics returns the guarded sink for streams to report into
func (s *Svc) Metrics() domain.MetricsSink { return s.metrics }

// Forwarder wraps f so pushes show up as the forwarding state
func (s *Svc) Forwarder(f domain.Forwarder) domain.Forwarder { return stateForwarder{svc: s, inner: f} }

// State implements domain.StatusPort
func (s *Svc) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastCycle implements domain.StatusPort
func (s *Svc) LastCycle() (domain.CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.CycleReport{}, false
	}
	return *s.last, true
}

func (s *Svc) setState(st domain.State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run loops until ctx is cancelled or a cycle fails with a non transient error
// Cancellation is only observed between cycles and during cooldown; a running
// cycle always completes
func (s *Svc) Run(ctx context.Context) error {
	log := logger.Named("poller")
	log.Info().Str("connector", s.cfg.Connector).Dur("frequency", s.cfg.Frequency).Int("streams", len(s.streams)).Msg("poll loop started")
	defer func() {
		s.setState(domain.StateStopped)
		log.Info().Str("connector", s.cfg.Connector).Msg("poll loop stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		rep, err := s.RunOnce(ctx)
		if err != nil {
			if !perr.IsTransient(err) {
				log.Error().Err(err).Str("class", rep.Class).Str("cycle_id", rep.ID).Msg("cycle failed; stopping")
				return err
			}
			log.Warn().Err(err).Str("cycle_id", rep.ID).Msg("cycle abandoned; retrying next cycle")
		}

		if rep.Sleep <= 0 {
			continue
		}
		s.setState(domain.StateCooldown)
		if err := s.sleep(ctx, rep.Sleep); err != nil {
			return nil
		}
	}
}

// RunOnce runs every stream once, stopping at the first error
// The cycle is detached from ctx cancellation so in flight calls finish
func (s *Svc) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	rep := domain.CycleReport{ID: s.newID(), Connector: s.cfg.Connector, Started: s.now()}
	cctx := logger.WithCycle(context.WithoutCancel(ctx), rep.ID, s.cfg.Connector)
	log := logger.C(cctx)

	s.setState(domain.StateFetching)
	var cycleErr error
	for _, st := range s.streams {
		sctx := logger.WithStream(cctx, string(st.ID()))
		res, err := st.Run(sctx)
		rep.Forwarded += res.Forwarded
		rep.Streams = append(rep.Streams, res)
		if err != nil {
			cycleErr = perr.WithField(err, string(st.ID()))
			break
		}
	}

	rep.Finished = s.now()
	rep.Duration = rep.Finished.Sub(rep.Started)
	if d := s.cfg.Frequency - rep.Duration; d > 0 {
		rep.Sleep = d
	}
	for i := range rep.Streams {
		if rep.Streams[i].Seen {
			rep.Streams[i].Lag = rep.Finished.Sub(rep.Streams[i].Latest)
		}
	}
	if cycleErr != nil {
		rep.Error = cycleErr.Error()
		rep.Class = perr.Classify(cycleErr).String()
	}

	s.report(rep)

	msg := "No records to forward"
	if rep.Forwarded > 0 {
		msg = "Pushed " + strconv.Itoa(rep.Forwarded) + " records"
	}
	ev := log.Info()
	if cycleErr != nil {
		ev = log.Warn()
	}
	ev.Int("forwarded", rep.Forwarded).Dur("duration", rep.Duration).Dur("sleep", rep.Sleep).Msg(msg)

	s.mu.Lock()
	s.last = &rep
	s.state = domain.StateIdle
	s.mu.Unlock()
	return rep, cycleErr
}

// report pushes cycle metrics; lag is only reported for streams that saw records
func (s *Svc) report(rep domain.CycleReport) {
	key := domain.Labels{"intake_key": s.cfg.IntakeKey}
	s.metrics.Add(domain.MetricForwardedEvents, key, float64(rep.Forwarded))
	s.metrics.Observe(domain.MetricForwardDuration, key, rep.Duration.Seconds())
	for _, r := range rep.Streams {
		if !r.Seen {
			continue
		}
		s.metrics.Set(domain.MetricEventLags, domain.Labels{"intake_key": s.cfg.IntakeKey, "stream": string(r.Stream)}, r.Lag.Seconds())
	}
}

// stateForwarder flips the loop into forwarding while a push is in flight
type stateForwarder struct {
	svc   *Svc
	inner domain.Forwarder
}

func (f stateForwarder) Push(ctx context.Context, records []string) ([]string, error) {
	f.svc.setState(domain.StateForwarding)
	defer f.svc.setState(domain.StateFetching)
	start := time.Now()
	acks, err := f.inner.Push(ctx, records)
	logger.C(ctx).Debug().Int("records", len(records)).Int("acks", len(acks)).Dur("took", time.Since(start)).Err(err).Msg("batch pushed")
	return acks, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
