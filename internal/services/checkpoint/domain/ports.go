package domain

import "context"

// StorePort is the public port streams use to read and advance their checkpoint
type StorePort interface {
	// Get returns the stored value for id; ok is false when nothing was stored yet
	Get(ctx context.Context, id StreamID) (value string, ok bool, err error)

	// Set replaces the value for id, leaving other streams untouched
	Set(ctx context.Context, id StreamID, value string) error

	// Snapshot returns a copy of every stored checkpoint
	Snapshot(ctx context.Context) (Checkpoints, error)
}

// Backend is the durable storage behind the store
// Update is all or nothing: when fn or the write fails the stored state is unchanged
type Backend interface {
	Read(ctx context.Context) (Checkpoints, error)
	Update(ctx context.Context, fn func(Checkpoints) error) error
}

// Queries is the SQL surface of the postgres backend
type Queries interface {
	Load(ctx context.Context, connector string) (Checkpoints, error)
	Upsert(ctx context.Context, connector string, cps Checkpoints) error
}
