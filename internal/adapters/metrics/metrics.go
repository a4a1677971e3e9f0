// Package metrics holds in process metric sinks for the poll loop
// There is no exporter; the status endpoint reads the registry snapshot
package metrics

import (
	"sort"
	"strings"
	"sync"

	"connectors/internal/platform/logger"
	"connectors/internal/services/poller/domain"
)

// Sample is one labelled series in a snapshot
type Sample = domain.MetricSample

// Registry keeps the latest value of every series in memory
type Registry struct {
	mu     sync.Mutex
	series map[string]*Sample
}

// NewRegistry constructs an empty Registry
func NewRegistry() *Registry { return &Registry{series: map[string]*Sample{}} }

func seriesKey(name string, l domain.Labels) string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(l[k])
	}
	return b.String()
}

func (r *Registry) get(name string, kind domain.MetricKind, l domain.Labels) *Sample {
	k := seriesKey(name, l)
	s, ok := r.series[k]
	if !ok {
		cp := make(domain.Labels, len(l))
		for lk, lv := range l {
			cp[lk] = lv
		}
		s = &Sample{Name: name, Kind: kind, Labels: cp}
		r.series[k] = s
	}
	return s
}

// Add increments a counter
func (r *Registry) Add(name string, l domain.Labels, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name, domain.MetricCounter, l).Value += v
}

// Set replaces a gauge value
func (r *Registry) Set(name string, l domain.Labels, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(name, domain.MetricGauge, l).Value = v
}

// Observe records one observation; Value is the last one seen
func (r *Registry) Observe(name string, l domain.Labels, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.get(name, domain.MetricObservation, l)
	s.Value = v
	s.Count++
	s.Sum += v
	if s.Count == 1 || v > s.Max {
		s.Max = v
	}
}

// Snapshot returns every series sorted by name then labels
func (r *Registry) Snapshot() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.series))
	for k := range r.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Sample, 0, len(keys))
	for _, k := range keys {
		out = append(out, *r.series[k])
	}
	return out
}

// LogSink writes every metric update at debug level
type LogSink struct{ log *logger.Logger }

// NewLogSink constructs a LogSink
func NewLogSink() LogSink { return LogSink{log: logger.Named("metrics")} }

func (s LogSink) emit(kind domain.MetricKind, name string, l domain.Labels, v float64) {
	ev := s.log.Debug().Str("metric", name).Str("kind", string(kind)).Float64("value", v)
	for k, lv := range l {
		ev = ev.Str(k, lv)
	}
	ev.Msg("metric")
}

// Add implements domain.MetricsSink
func (s LogSink) Add(name string, l domain.Labels, v float64) { s.emit(domain.MetricCounter, name, l, v) }

// Set implements domain.MetricsSink
func (s LogSink) Set(name string, l domain.Labels, v float64) { s.emit(domain.MetricGauge, name, l, v) }

// Observe implements domain.MetricsSink
func (s LogSink) Observe(name string, l domain.Labels, v float64) {
	s.emit(domain.MetricObservation, name, l, v)
}

// Fanout sends every update to each sink in order
type Fanout []domain.MetricsSink

// Add implements domain.MetricsSink
func (f Fanout) Add(name string, l domain.Labels, v float64) {
	for _, s := range f {
		s.Add(name, l, v)
	}
}

// Set implements domain.MetricsSink
func (f Fanout) Set(name string, l domain.Labels, v float64) {
	for _, s := range f {
		s.Set(name, l, v)
	}
}

// Observe implements domain.MetricsSink
func (f Fanout) Observe(name string, l domain.Labels, v float64) {
	for _, s := range f {
		s.Observe(name, l, v)
	}
}
