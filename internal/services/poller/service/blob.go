package service

import (
	"context"

	"connectors/internal/core/cursor"
	"connectors/internal/core/lines"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"
	ckdomain "connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/poller/domain"
)

// BlobConfig configures a BlobStream
type BlobConfig struct {
	Stream ckdomain.StreamID
	Policy cursor.Policy
}

// BlobStream downloads every object modified after the cursor and forwards its lines
// The checkpoint is the newest last modified time seen
type BlobStream struct {
	cfg BlobConfig
	src domain.BlobSource
	env Env
}

// NewBlobStream constructs a BlobStream
func NewBlobStream(cfg BlobConfig, src domain.BlobSource, env Env) *BlobStream {
	return &BlobStream{cfg: cfg, src: src, env: env}
}

// ID implements domain.Stream
func (s *BlobStream) ID() ckdomain.StreamID { return s.cfg.Stream }

// Run implements domain.Stream
func (s *BlobStream) Run(ctx context.Context) (res domain.StreamResult, err error) {
	res.Stream = s.cfg.Stream
	now := s.env.now()

	lower, err := s.env.lowerBound(ctx, s.cfg.Stream, s.cfg.Policy, now)
	if err != nil {
		return res, err
	}
	res.Lower = lower
	log := logger.C(ctx)
	log.Info().Time("lower", lower).Msg("listing blobs")

	wm := cursor.NewWatermark(lower)
	b := s.env.batcher()
	defer tally(b, &res)

	for item, err := range s.src.ListSince(ctx, lower) {
		if err != nil {
			return res, err
		}
		if !item.LastModified.After(lower) {
			continue
		}
		log.Debug().Str("blob", item.Name).Time("modified_at", item.LastModified).Msg("processing blob")

		if s.env.Limiter != nil {
			if err := s.env.Limiter.Wait(ctx); err != nil {
				return res, err
			}
		}
		content, err := s.src.Download(ctx, item.Ref)
		if err != nil {
			return res, perr.WithField(err, item.Name)
		}
		recs, err := lines.Split(content)
		if err != nil {
			return res, perr.WithField(err, item.Name)
		}

		wm.Observe(item.LastModified)
		res.Collected += len(recs)
		s.env.collected(s.cfg.Stream, len(recs))
		if err := b.Add(ctx, recs...); err != nil {
			return res, err
		}
	}
	if err := b.Flush(ctx); err != nil {
		return res, err
	}

	res.Latest, res.Seen = wm.Value(), wm.Seen()
	if !wm.Seen() {
		return res, nil
	}
	value := s.cfg.Policy.Encode(wm.Value())
	if err := s.env.Checkpoints.Set(ctx, s.cfg.Stream, value); err != nil {
		return res, err
	}
	log.Info().Str("last_event_date", value).Msg("checkpoint advanced")
	res.Checkpoint = value
	return res, nil
}
