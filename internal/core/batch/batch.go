// Package batch accumulates serialized records and pushes them in bounded batches
package batch

import "context"

// DefaultThreshold matches the usual intake batch ceiling
const DefaultThreshold = 10000

// PushFunc forwards one batch and returns the ack ids the receiver assigned
type PushFunc func(ctx context.Context, records []string) ([]string, error)

// Batcher buffers records until Threshold is reached, then pushes
// Batches are pushed in arrival order and never exceed Threshold
// A Batcher is not safe for concurrent use
type Batcher struct {
	push      PushFunc
	threshold int
	buf       []string
	acks      []string
	pushes    int
	forwarded int
}

// New returns a Batcher; a non positive threshold falls back to DefaultThreshold
func New(push PushFunc, threshold int) *Batcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Batcher{push: push, threshold: threshold}
}

// Add buffers records, pushing every time the buffer reaches the threshold
func (b *Batcher) Add(ctx context.Context, records ...string) error {
	for _, r := range records {
		b.buf = append(b.buf, r)
		if len(b.buf) >= b.threshold {
			if err := b.Flush(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush pushes whatever is buffered; an empty buffer is a no-op
// On failure the buffer is kept so the caller can decide what to do with it
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.buf) == 0 {
		return nil
	}
	out := b.buf
	acks, err := b.push(ctx, out)
	if err != nil {
		return err
	}
	b.acks = append(b.acks, acks...)
	b.pushes++
	b.forwarded += len(out)
	b.buf = nil
	return nil
}

// Pending is the number of buffered, unpushed records
func (b *Batcher) Pending() int { return len(b.buf) }

// Acks returns every ack id returned so far
func (b *Batcher) Acks() []string { return b.acks }

// Pushes is the number of successful pushes
func (b *Batcher) Pushes() int { return b.pushes }

// Forwarded is the number of records successfully pushed
func (b *Batcher) Forwarded() int { return b.forwarded }
