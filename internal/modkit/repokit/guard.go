package repokit

import (
	"context"
	"time"

	perr "connectors/internal/platform/errors"
)

// DefaultProbeTimeout bounds a probe when ctx has no deadline
const DefaultProbeTimeout = 5 * time.Second

// Pinger is any dependency that can report readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

type guarder interface {
	Guard(ctx context.Context) error
}

// Probe pings p and maps a failure to an Unavailable error named after the dependency
func Probe(ctx context.Context, name string, p Pinger) error {
	if p == nil {
		return perr.WithField(perr.InvalidArgf("%s: nil dependency", name), name)
	}
	ctx, cancel := bounded(ctx)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return perr.WithField(perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s ping failed", name), name)
	}
	return nil
}

// Guard runs st.Guard under the probe deadline
func Guard(ctx context.Context, st guarder) error {
	ctx, cancel := bounded(ctx)
	defer cancel()
	if err := st.Guard(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "dependency guard failed")
	}
	return nil
}

func bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultProbeTimeout)
}
