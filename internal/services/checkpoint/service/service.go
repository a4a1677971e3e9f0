// Package service implements the checkpoint store on top of a durable backend
package service

import (
	"context"

	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/logger"
	"connectors/internal/services/checkpoint/domain"
)

// Store implements domain.StorePort
// every Set is a full read-modify-write through the backend
type Store struct {
	backend domain.Backend
	log     *logger.Logger
}

// New constructs a Store over backend
func New(backend domain.Backend) *Store {
	return &Store{backend: backend, log: logger.Named("checkpoint")}
}

// Get returns the stored value for id
func (s *Store) Get(ctx context.Context, id domain.StreamID) (string, bool, error) {
	if !id.Valid() {
		return "", false, perr.InvalidArgf("unknown stream %q", id)
	}
	cps, err := s.backend.Read(ctx)
	if err != nil {
		return "", false, perr.WithOp(err, "checkpoint.get")
	}
	v, ok := cps[id]
	return v, ok, nil
}

// Set replaces the value for id
func (s *Store) Set(ctx context.Context, id domain.StreamID, value string) error {
	if !id.Valid() {
		return perr.InvalidArgf("unknown stream %q", id)
	}
	if value == "" {
		return perr.WithField(perr.InvalidArgf("empty checkpoint value"), string(id))
	}
	err := s.backend.Update(ctx, func(cps domain.Checkpoints) error {
		cps[id] = value
		return nil
	})
	if err != nil {
		return perr.WithOp(err, "checkpoint.set")
	}
	s.log.Debug().Str("stream", string(id)).Str("value", value).Msg("checkpoint saved")
	return nil
}

// Snapshot returns a copy of every stored checkpoint
func (s *Store) Snapshot(ctx context.Context) (domain.Checkpoints, error) {
	cps, err := s.backend.Read(ctx)
	if err != nil {
		return nil, perr.WithOp(err, "checkpoint.snapshot")
	}
	return cps.Clone(), nil
}
