package domain

import (
	"time"

	"connectors/internal/core/record"
	ckdomain "connectors/internal/services/checkpoint/domain"
)

// State is where the poll loop currently is
type State string

const (
	// StateIdle is before the first cycle and between cycles when no cooldown is due
	StateIdle State = "idle"
	// StateFetching covers source calls
	StateFetching State = "fetching"
	// StateForwarding covers intake pushes
	StateForwarding State = "forwarding"
	// StateCooldown is the sleep between cycles
	StateCooldown State = "cooldown"
	// StateStopped is terminal
	StateStopped State = "stopped"
)

// PageQuery scopes one source request
// Upper is zero when the source is only bounded below
type PageQuery struct {
	Lower  time.Time
	Upper  time.Time
	Offset int
	Limit  int
}

// Page is one source response
type Page struct {
	Records  []record.Record
	Total    int
	HasTotal bool
}

// Item is one listed blob
type Item struct {
	Name         string
	LastModified time.Time
	Ref          string
	Size         int64
}

// StreamResult summarises one stream inside a cycle
type StreamResult struct {
	Stream     ckdomain.StreamID `json:"stream"`
	Lower      time.Time         `json:"lower"`
	Upper      time.Time         `json:"upper"`
	Latest     time.Time         `json:"latest"`
	Seen       bool              `json:"seen"`
	Collected  int               `json:"collected"`
	Forwarded  int               `json:"forwarded"`
	Pushes     int               `json:"pushes"`
	Checkpoint string            `json:"checkpoint,omitempty"`
	Lag        time.Duration     `json:"lag"`
}

// CycleReport summarises one full cycle
type CycleReport struct {
	ID        string         `json:"id"`
	Connector string         `json:"connector"`
	Started   time.Time      `json:"started"`
	Finished  time.Time      `json:"finished"`
	Duration  time.Duration  `json:"duration"`
	Sleep     time.Duration  `json:"sleep"`
	Forwarded int            `json:"forwarded"`
	Streams   []StreamResult `json:"streams"`
	Error     string         `json:"error,omitempty"`
	Class     string         `json:"class,omitempty"`
}

// Labels are metric dimensions
type Labels map[string]string

// Metric names shared by the loop and the sinks
const (
	MetricForwardedEvents  = "forwarded_events"
	MetricEventLags        = "event_lags"
	MetricForwardDuration  = "forward_events_duration"
	MetricCollectedRecords = "collected_records"
)

// MetricKind is the metric type
type MetricKind string

// Metric kinds
const (
	MetricCounter     MetricKind = "counter"
	MetricGauge       MetricKind = "gauge"
	MetricObservation MetricKind = "observation"
)

// MetricSample is one labelled series as read back from a sink
type MetricSample struct {
	Name   string     `json:"name"`
	Kind   MetricKind `json:"kind"`
	Labels Labels     `json:"labels,omitempty"`
	Value  float64    `json:"value"`
	Count  int64      `json:"count,omitempty"`
	Sum    float64    `json:"sum,omitempty"`
	Max    float64    `json:"max,omitempty"`
}
