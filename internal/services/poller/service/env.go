package service

import (
	"context"
	"time"

	"connectors/internal/core/batch"
	"connectors/internal/core/cursor"
	ckdomain "connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/poller/domain"
)

// Env is what every stream shares besides its source
type Env struct {
	Checkpoints ckdomain.StorePort
	Forwarder   domain.Forwarder
	Metrics     domain.MetricsSink
	Limiter     domain.Limiter
	// Threshold is the batch size that triggers a push; zero means batch.DefaultThreshold
	Threshold int
	Now       func() time.Time
}

func (e Env) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Env) batcher() *batch.Batcher { return batch.New(e.Forwarder.Push, e.Threshold) }

func (e Env) collected(id ckdomain.StreamID, n int) {
	if e.Metrics == nil || n == 0 {
		return
	}
	e.Metrics.Add(domain.MetricCollectedRecords, domain.Labels{"stream": string(id)}, float64(n))
}

// lowerBound reads the stream checkpoint and resolves it against the policy
func (e Env) lowerBound(ctx context.Context, id ckdomain.StreamID, p cursor.Policy, now time.Time) (time.Time, error) {
	v, ok, err := e.Checkpoints.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return p.Resolve(v, ok, now)
}

// tally copies batcher counters into res; it runs on every exit path
func tally(b *batch.Batcher, res *domain.StreamResult) {
	res.Forwarded = b.Forwarded()
	res.Pushes = b.Pushes()
}
