// Package domain holds the status surface payloads
package domain

import (
	"time"

	ckdomain "connectors/internal/services/checkpoint/domain"
	pdomain "connectors/internal/services/poller/domain"
)

// Health is the liveness payload
type Health struct {
	OK        bool          `json:"ok"`
	Connector string        `json:"connector"`
	State     pdomain.State `json:"state"`
	Started   time.Time     `json:"started"`
	Now       time.Time     `json:"now"`
}

// Check describes one dependency probe
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail skipped
	Error  string `json:"error,omitempty"`
}

// Readiness summarises dependency probes
type Readiness struct {
	Status string    `json:"status"` // ok fail
	Checks []Check   `json:"checks"`
	Now    time.Time `json:"now"`
}

// Report is the full status document
type Report struct {
	Connector   string                 `json:"connector"`
	State       pdomain.State          `json:"state"`
	Started     time.Time              `json:"started"`
	Uptime      int64                  `json:"uptime"`
	LastCycle   *pdomain.CycleReport   `json:"last_cycle,omitempty"`
	Checkpoints ckdomain.Checkpoints   `json:"checkpoints"`
	Metrics     []pdomain.MetricSample `json:"metrics"`
}
