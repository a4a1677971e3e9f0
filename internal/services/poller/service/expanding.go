package service

import (
	"context"
	"time"

	"connectors/internal/core/cursor"
	"connectors/internal/core/paginate"
	"connectors/internal/core/record"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"
	ckdomain "connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/poller/domain"

	"golang.org/x/sync/errgroup"
)

// ExpandingConfig configures an ExpandingStream
type ExpandingConfig struct {
	Stream    ckdomain.StreamID
	Policy    cursor.Policy
	PageSize  int
	TimeField record.TimeField

	// IDPath locates the parent id used to scope child requests
	IDPath string
	// ParentKey is added to every child record, carrying the parent id
	ParentKey string
	// Children are the sub resource kinds drained per parent, pushed in this order
	Children []string
}

// ExpandingStream pages parent records in [cursor, cycle start] and drains
// every child resource of each parent before moving to the next one
// The checkpoint is the upper bound of the window, not the newest parent
type ExpandingStream struct {
	cfg      ExpandingConfig
	parents  domain.RecordSource
	children domain.ChildSource
	env      Env
}

// NewExpandingStream constructs an ExpandingStream
func NewExpandingStream(cfg ExpandingConfig, parents domain.RecordSource, children domain.ChildSource, env Env) *ExpandingStream {
	return &ExpandingStream{cfg: cfg, parents: parents, children: children, env: env}
}

// ID implements domain.Stream
func (s *ExpandingStream) ID() ckdomain.StreamID { return s.cfg.Stream }

// Run implements domain.Stream
func (s *ExpandingStream) Run(ctx context.Context) (res domain.StreamResult, err error) {
	res.Stream = s.cfg.Stream
	now := s.env.now()
	upper := now
	if p := s.cfg.Policy.Precision; p > 0 {
		upper = now.Truncate(p)
	}

	lower, err := s.env.lowerBound(ctx, s.cfg.Stream, s.cfg.Policy, now)
	if err != nil {
		return res, err
	}
	if lower.After(upper) {
		lower = upper
	}
	res.Lower, res.Upper = lower, upper
	window := domain.PageQuery{Lower: lower, Upper: upper}

	wm := cursor.NewWatermark(lower)
	b := s.env.batcher()
	defer tally(b, &res)

	pager := paginate.New(func(ctx context.Context, req paginate.Request) (paginate.Page[record.Record], error) {
		q := window
		q.Offset, q.Limit = req.Offset, req.Limit
		page, err := s.parents.FetchPage(ctx, q)
		return paginate.Page[record.Record]{Records: page.Records}, err
	}, paginate.Config{PageSize: s.cfg.PageSize, Strategy: paginate.EmptyPage, Limiter: s.env.Limiter})

	err = pager.Each(ctx, func(page paginate.Page[record.Record]) error {
		ids := make([]string, len(page.Records))
		for i, r := range page.Records {
			id, ok := r.ID(s.cfg.IDPath)
			if !ok {
				return perr.WithField(
					perr.MissingIdentifierf("%s record at offset %d has no %s", s.cfg.Stream, page.Offset+i, s.cfg.IDPath),
					s.cfg.IDPath,
				)
			}
			ids[i] = id

			t, seen, err := s.cfg.TimeField.Extract(r)
			if err != nil {
				return err
			}
			if seen {
				wm.Observe(t)
			}
		}

		lines, err := record.EncodeAll(page.Records)
		if err != nil {
			return err
		}
		res.Collected += len(lines)
		s.env.collected(s.cfg.Stream, len(lines))
		if err := b.Add(ctx, lines...); err != nil {
			return err
		}

		for _, id := range ids {
			groups, err := s.expand(ctx, id, window)
			if err != nil {
				return err
			}
			for _, g := range groups {
				res.Collected += len(g)
				s.env.collected(s.cfg.Stream, len(g))
				if err := b.Add(ctx, g...); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return res, err
	}
	if err := b.Flush(ctx); err != nil {
		return res, err
	}

	res.Latest, res.Seen = wm.Value(), wm.Seen()
	value := s.cfg.Policy.Encode(upper)
	if err := s.env.Checkpoints.Set(ctx, s.cfg.Stream, value); err != nil {
		return res, err
	}
	res.Checkpoint = value
	return res, nil
}

// expand drains every child kind of one parent concurrently
// results come back in declaration order regardless of completion order
func (s *ExpandingStream) expand(ctx context.Context, parentID string, window domain.PageQuery) ([][]string, error) {
	out := make([][]string, len(s.cfg.Children))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range s.cfg.Children {
		g.Go(func() error {
			start := time.Now()
			pager := paginate.New(func(ctx context.Context, req paginate.Request) (paginate.Page[record.Record], error) {
				q := window
				q.Offset, q.Limit = req.Offset, req.Limit
				page, err := s.children.FetchChildren(ctx, kind, parentID, q)
				return paginate.Page[record.Record]{Records: page.Records}, err
			}, paginate.Config{PageSize: s.cfg.PageSize, Strategy: paginate.EmptyPage, Limiter: s.env.Limiter})

			rs, err := pager.Collect(gctx)
			if err != nil {
				return perr.WithOp(err, "expand."+kind)
			}
			lines := make([]string, 0, len(rs))
			for _, r := range rs {
				line, err := r.With(s.cfg.ParentKey, parentID).Encode()
				if err != nil {
					return err
				}
				lines = append(lines, line)
			}
			out[i] = lines
			logger.C(ctx).Debug().Str("kind", kind).Str("parent", parentID).Int("records", len(lines)).Dur("took", time.Since(start)).Msg("children drained")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
