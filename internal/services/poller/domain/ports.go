package domain

import (
	"context"
	"iter"
	"time"

	ckdomain "connectors/internal/services/checkpoint/domain"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	// Run loops until ctx is cancelled or a non transient error occurs
	Run(ctx context.Context) error

	// RunOnce executes exactly one cycle without cooldown
	RunOnce(ctx context.Context) (CycleReport, error)
}

// StatusPort exposes loop state for the status surface
type StatusPort interface {
	State() State
	LastCycle() (CycleReport, bool)
}

// RecordSource fetches one page of records in a time window
type RecordSource interface {
	FetchPage(ctx context.Context, q PageQuery) (Page, error)
}

// ChildSource fetches one page of a parent's sub resource
type ChildSource interface {
	FetchChildren(ctx context.Context, kind, parentID string, q PageQuery) (Page, error)
}

// BlobSource lists and downloads stored objects
type BlobSource interface {
	// ListSince yields items modified strictly after lower
	ListSince(ctx context.Context, lower time.Time) iter.Seq2[Item, error]
	Download(ctx context.Context, ref string) ([]byte, error)
}

// Forwarder pushes serialized records to the intake and returns ack ids
// callers may retry a batch, so receivers must tolerate duplicates
type Forwarder interface {
	Push(ctx context.Context, records []string) ([]string, error)
}

// MetricsSink receives loop metrics; implementations must not block or panic
type MetricsSink interface {
	Add(name string, labels Labels, delta float64)
	Set(name string, labels Labels, value float64)
	Observe(name string, labels Labels, value float64)
}

// Limiter suspends the caller until the next source request is permitted
type Limiter interface {
	Wait(ctx context.Context) error
}

// Stream is one checkpointed fetch and forward procedure
type Stream interface {
	ID() ckdomain.StreamID
	Run(ctx context.Context) (StreamResult, error)
}

// MetricsReader reads back what a sink has recorded
type MetricsReader interface {
	Snapshot() []MetricSample
}
