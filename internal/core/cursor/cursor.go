// Package cursor turns a stored checkpoint into the lower bound of the next fetch
// and turns the newest observed timestamp back into a checkpoint value
//
// Resolution always clamps into [now-Floor, now], so a stale or missing checkpoint
// never reaches further back than the source retains data, and a clock skewed
// checkpoint never asks for the future
package cursor

import (
	"strconv"
	"strings"
	"time"

	perr "connectors/internal/platform/errors"
)

// Format is how a stream stores its watermark
type Format uint8

const (
	// FormatISO8601 stores an RFC 3339 timestamp string
	FormatISO8601 Format = iota
	// FormatEpochMillis stores integer milliseconds since the unix epoch
	FormatEpochMillis
)

// String names the format for logs
func (f Format) String() string {
	if f == FormatEpochMillis {
		return "epoch_millis"
	}
	return "iso8601"
}

// ParseFormat maps a config value to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iso", "iso8601", "rfc3339":
		return FormatISO8601, nil
	case "epoch_millis", "epoch_ms", "millis":
		return FormatEpochMillis, nil
	}
	return 0, perr.InvalidArgf("unknown cursor format %q", s)
}

// DefaultEpsilon is the step added to a stored watermark for sources whose
// lower bound filter is inclusive
const DefaultEpsilon = time.Second

// Policy is the per stream cursor contract
type Policy struct {
	// Floor is the maximum look back; must be positive
	Floor time.Duration
	// Initial is the look back on first run; zero means Floor
	Initial time.Duration
	// Format selects the stored representation
	Format Format
	// Inclusive marks sources whose lower bound filter is >=; Encode then adds Epsilon
	Inclusive bool
	// Epsilon overrides DefaultEpsilon when Inclusive is set
	Epsilon time.Duration
	// Precision truncates the floor and the initial look back, e.g. time.Second for sources
	// without sub second filters; a stored checkpoint is never truncated
	Precision time.Duration
}

func (p Policy) epsilon() time.Duration {
	if !p.Inclusive {
		return 0
	}
	if p.Epsilon > 0 {
		return p.Epsilon
	}
	return DefaultEpsilon
}

func (p Policy) truncate(t time.Time) time.Time {
	if p.Precision > 0 {
		return t.Truncate(p.Precision)
	}
	return t
}

// FloorAt returns the earliest lower bound the policy permits at now
func (p Policy) FloorAt(now time.Time) time.Time {
	return p.truncate(now.Add(-p.Floor))
}

// Resolve computes the lower bound for a fetch at now
// value/ok is what the checkpoint store returned for the stream
func (p Policy) Resolve(value string, ok bool, now time.Time) (time.Time, error) {
	if p.Floor <= 0 {
		return time.Time{}, perr.InvalidArgf("cursor floor must be positive, got %s", p.Floor)
	}
	floor := p.FloorAt(now)

	var lower time.Time
	if !ok || strings.TrimSpace(value) == "" {
		back := p.Initial
		if back <= 0 {
			back = p.Floor
		}
		lower = p.truncate(now.Add(-back))
	} else {
		t, err := p.Parse(value)
		if err != nil {
			return time.Time{}, err
		}
		lower = t
	}

	if lower.Before(floor) {
		lower = floor
	}
	if lower.After(now) {
		lower = now
	}
	return lower.UTC(), nil
}

// Encode renders the watermark t as a checkpoint value, applying epsilon for inclusive sources
func (p Policy) Encode(t time.Time) string {
	t = t.Add(p.epsilon()).UTC()
	if p.Format == FormatEpochMillis {
		return strconv.FormatInt(t.UnixMilli(), 10)
	}
	return t.Format(time.RFC3339Nano)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Parse reads a stored checkpoint value in the policy's format
// naive ISO timestamps are taken as UTC
func (p Policy) Parse(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if p.Format == FormatEpochMillis {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, perr.Wrapf(err, perr.ErrorCodeMalformedCheckpoint, "checkpoint %q is not epoch millis", value)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, perr.MalformedCheckpointf("checkpoint %q is not an ISO 8601 timestamp", value)
}
