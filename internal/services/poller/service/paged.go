package service

import (
	"context"

	"connectors/internal/core/cursor"
	"connectors/internal/core/paginate"
	"connectors/internal/core/record"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"
	ckdomain "connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/poller/domain"
)

// PagedConfig configures a PagedStream
type PagedConfig struct {
	Stream     ckdomain.StreamID
	Policy     cursor.Policy
	Pagination paginate.Strategy
	PageSize   int
	TimeField  record.TimeField

	// Bounded passes the cycle start as the upper bound of every request
	Bounded bool

	// SplitPath names a top level array whose items are forwarded as records of
	// their own right after the parent; each item gets SplitKey copied from the parent
	SplitPath string
	SplitKey  string
}

// PagedStream pages one record source and checkpoints the newest record time
type PagedStream struct {
	cfg PagedConfig
	src domain.RecordSource
	env Env
}

// NewPagedStream constructs a PagedStream
func NewPagedStream(cfg PagedConfig, src domain.RecordSource, env Env) *PagedStream {
	return &PagedStream{cfg: cfg, src: src, env: env}
}

// ID implements domain.Stream
func (s *PagedStream) ID() ckdomain.StreamID { return s.cfg.Stream }

// Run implements domain.Stream
func (s *PagedStream) Run(ctx context.Context) (res domain.StreamResult, err error) {
	res.Stream = s.cfg.Stream
	now := s.env.now()

	lower, err := s.env.lowerBound(ctx, s.cfg.Stream, s.cfg.Policy, now)
	if err != nil {
		return res, err
	}
	res.Lower = lower
	base := domain.PageQuery{Lower: lower}
	if s.cfg.Bounded {
		base.Upper = now
		res.Upper = now
	}

	wm := cursor.NewWatermark(lower)
	b := s.env.batcher()
	defer tally(b, &res)

	pager := paginate.New(func(ctx context.Context, req paginate.Request) (paginate.Page[record.Record], error) {
		q := base
		q.Offset, q.Limit = req.Offset, req.Limit
		page, err := s.src.FetchPage(ctx, q)
		return paginate.Page[record.Record]{Records: page.Records, Total: page.Total, HasTotal: page.HasTotal}, err
	}, paginate.Config{PageSize: s.cfg.PageSize, Strategy: s.cfg.Pagination, Limiter: s.env.Limiter})

	err = pager.Each(ctx, func(page paginate.Page[record.Record]) error {
		lines, err := s.flatten(page.Records, wm)
		if err != nil {
			return err
		}
		res.Collected += len(lines)
		s.env.collected(s.cfg.Stream, len(lines))
		logger.C(ctx).Debug().Int("offset", page.Offset).Int("records", len(page.Records)).Int("total", page.Total).Msg("page fetched")
		return b.Add(ctx, lines...)
	})
	if err != nil {
		return res, err
	}
	if err := b.Flush(ctx); err != nil {
		return res, err
	}

	res.Latest, res.Seen = wm.Value(), wm.Seen()
	if !wm.Seen() {
		logger.C(ctx).Info().Time("lower", lower).Msg("no records to forward")
		return res, nil
	}
	value := s.cfg.Policy.Encode(wm.Value())
	if err := s.env.Checkpoints.Set(ctx, s.cfg.Stream, value); err != nil {
		return res, err
	}
	res.Checkpoint = value
	return res, nil
}

// flatten observes record times and serializes records, splitting nested items out
func (s *PagedStream) flatten(rs []record.Record, wm *cursor.Watermark) ([]string, error) {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		t, ok, err := s.cfg.TimeField.Extract(r)
		if err != nil {
			return nil, err
		}
		if ok {
			wm.Observe(t)
		}

		if s.cfg.SplitPath == "" {
			line, err := r.Encode()
			if err != nil {
				return nil, err
			}
			out = append(out, line)
			continue
		}

		raw, _ := r.Lookup(s.cfg.SplitPath)
		children, _ := record.Records(raw)
		parent := r.Without(s.cfg.SplitPath)
		line, err := parent.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, line)
		if len(children) == 0 {
			continue
		}

		id, ok := r.ID(s.cfg.SplitKey)
		if !ok {
			return nil, perr.MissingIdentifierf("record with %d %s has no %s", len(children), s.cfg.SplitPath, s.cfg.SplitKey)
		}
		for _, c := range children {
			line, err := c.With(s.cfg.SplitKey, id).Encode()
			if err != nil {
				return nil, err
			}
			out = append(out, line)
		}
	}
	return out, nil
}
