// Package store opens the optional backends of a connector:
// Postgres for checkpoints and ClickHouse for the archive intake
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"

	"connectors/internal/platform/logger"
)

// Store holds whichever backends were enabled; the zero value has none
type Store struct {
	Log logger.Logger
	PG  TxRunner
	CH  Clickhouse
}

// Open builds a Store with the backends enabled in cfg
// a failure part way closes what was already opened
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: logger.Get().With().Logger()}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	if cfg.PG.Enabled {
		pgc, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.PG = pgc
	}
	if cfg.CH.Enabled {
		chc, err := openCH(ctx, cfg, s)
		if err != nil {
			_ = s.Close(ctx)
			return nil, err
		}
		s.CH = chc
	}
	s.Log.Debug().Strs("backends", slices.Sorted(maps.Keys(s.Pingers()))).Msg("store open")
	return s, nil
}

// backends yields the configured backends by name
func (s *Store) backends() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if s == nil {
			return
		}
		if s.PG != nil && !yield("pg", s.PG) {
			return
		}
		if s.CH != nil {
			yield("ch", s.CH)
		}
	}
}

// Pingers returns every configured backend that can be pinged, keyed pg or ch
func (s *Store) Pingers() map[string]Pinger {
	out := map[string]Pinger{}
	for name, b := range s.backends() {
		if p, ok := b.(Pinger); ok {
			out[name] = p
		}
	}
	return out
}

// Guard pings every backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: nil")
	}
	var errs []error
	for name, p := range s.Pingers() {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every backend that has a Close method
func (s *Store) Close(context.Context) error {
	var errs []error
	for name, b := range s.backends() {
		c, ok := b.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
