package service

import (
	"connectors/internal/platform/logger"
	"connectors/internal/services/poller/domain"
)

// safeSink keeps a misbehaving sink from reaching the loop
type safeSink struct{ inner domain.MetricsSink }

func guardSink(m domain.MetricsSink) domain.MetricsSink {
	if m == nil {
		return nopSink{}
	}
	if _, ok := m.(safeSink); ok {
		return m
	}
	return safeSink{inner: m}
}

func (s safeSink) recover(name string) {
	if r := recover(); r != nil {
		logger.Named("metrics").Warn().Str("metric", name).Interface("panic", r).Msg("metrics sink panicked")
	}
}

func (s safeSink) Add(name string, l domain.Labels, v float64) {
	defer s.recover(name)
	s.inner.Add(name, l, v)
}

func (s safeSink) Set(name string, l domain.Labels, v float64) {
	defer s.recover(name)
	s.inner.Set(name, l, v)
}

func (s safeSink) Observe(name string, l domain.Labels, v float64) {
	defer s.recover(name)
	s.inner.Observe(name, l, v)
}

type nopSink struct{}

func (nopSink) Add(string, domain.Labels, float64)     {}
func (nopSink) Set(string, domain.Labels, float64)     {}
func (nopSink) Observe(string, domain.Labels, float64) {}
