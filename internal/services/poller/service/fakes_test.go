package service

import (
	"context"
	"iter"
	"sync"
	"time"

	"connectors/internal/core/record"
	ckdomain "connectors/internal/services/checkpoint/domain"
	"connectors/internal/services/poller/domain"
)

var t0 = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// memStore is an in memory checkpoint store
type memStore struct {
	mu     sync.Mutex
	vals   ckdomain.Checkpoints
	setErr error
	sets   int
}

func newMemStore() *memStore { return &memStore{vals: ckdomain.Checkpoints{}} }

func (m *memStore) Get(_ context.Context, id ckdomain.StreamID) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[id]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, id ckdomain.StreamID, v string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.vals[id] = v
	return nil
}

func (m *memStore) Snapshot(context.Context) (ckdomain.Checkpoints, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vals.Clone(), nil
}

// recForwarder records every batch
type recForwarder struct {
	mu      sync.Mutex
	batches [][]string
	err     error
	onPush  func()
}

func (f *recForwarder) Push(_ context.Context, records []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onPush != nil {
		f.onPush()
	}
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, append([]string(nil), records...))
	acks := make([]string, len(records))
	for i := range acks {
		acks[i] = "ack"
	}
	return acks, nil
}

func (f *recForwarder) sizes() []int {
	out := make([]int, len(f.batches))
	for i, b := range f.batches {
		out[i] = len(b)
	}
	return out
}

func (f *recForwarder) all() []string {
	var out []string
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

// pagedSource serves records by offset; total is reported when set
type pagedSource struct {
	mu      sync.Mutex
	records []record.Record
	total   int
	queries []domain.PageQuery
	err     error
}

func (s *pagedSource) FetchPage(_ context.Context, q domain.PageQuery) (domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return domain.Page{}, s.err
	}
	end := min(q.Offset+q.Limit, len(s.records))
	var out []record.Record
	if q.Offset < end {
		out = s.records[q.Offset:end]
	}
	return domain.Page{Records: out, Total: s.total, HasTotal: s.total > 0}, nil
}

// childSource serves fixed children per kind and parent
type childSource struct {
	mu    sync.Mutex
	data  map[string][]record.Record // key kind/parent
	calls []string
}

func (c *childSource) FetchChildren(_ context.Context, kind, parent string, q domain.PageQuery) (domain.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, kind+"/"+parent)
	rs := c.data[kind+"/"+parent]
	if q.Offset >= len(rs) {
		return domain.Page{}, nil
	}
	return domain.Page{Records: rs[q.Offset:min(q.Offset+q.Limit, len(rs))]}, nil
}

// blobSource lists fixed items
type blobSource struct {
	items   []domain.Item
	content map[string][]byte
	lowers  []time.Time
	listErr error
}

func (b *blobSource) ListSince(_ context.Context, lower time.Time) iter.Seq2[domain.Item, error] {
	b.lowers = append(b.lowers, lower)
	return func(yield func(domain.Item, error) bool) {
		if b.listErr != nil {
			yield(domain.Item{}, b.listErr)
			return
		}
		for _, it := range b.items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

func (b *blobSource) Download(_ context.Context, ref string) ([]byte, error) {
	return b.content[ref], nil
}

// recSink records metrics by name
type recSink struct {
	mu   sync.Mutex
	adds map[string]float64
	sets map[string]float64
	obs  map[string][]float64
}

func newRecSink() *recSink {
	return &recSink{adds: map[string]float64{}, sets: map[string]float64{}, obs: map[string][]float64{}}
}

func key(name string, l domain.Labels) string {
	if s, ok := l["stream"]; ok {
		return name + ":" + s
	}
	return name
}

func (r *recSink) Add(name string, l domain.Labels, v float64) {
	r.mu.Lock()
	r.adds[key(name, l)] += v
	r.mu.Unlock()
}

func (r *recSink) Set(name string, l domain.Labels, v float64) {
	r.mu.Lock()
	r.sets[key(name, l)] = v
	r.mu.Unlock()
}

func (r *recSink) Observe(name string, l domain.Labels, v float64) {
	r.mu.Lock()
	r.obs[key(name, l)] = append(r.obs[key(name, l)], v)
	r.mu.Unlock()
}

// funcStream adapts a func into a domain.Stream
type funcStream struct {
	id  ckdomain.StreamID
	run func(ctx context.Context) (domain.StreamResult, error)
}

func (f funcStream) ID() ckdomain.StreamID { return f.id }
func (f funcStream) Run(ctx context.Context) (domain.StreamResult, error) {
	return f.run(ctx)
}

func rec(id string, at time.Time) record.Record {
	return record.Record{"id": id, "ts": at.Format(time.RFC3339)}
}
