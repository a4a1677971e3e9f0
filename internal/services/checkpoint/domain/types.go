package domain

import (
	"maps"
	"slices"

	perr "connectors/internal/platform/errors"
)

// StreamID names one logical stream; each stream owns exactly one checkpoint key
type StreamID string

const (
	// StreamTimestampCursor is the single stream of a paged connector (epoch millis)
	StreamTimestampCursor StreamID = "timestamp_cursor"
	// StreamAlerts is the alert stream of an expanding connector
	StreamAlerts StreamID = "alerts"
	// StreamThreats is the parent stream of an expanding connector
	StreamThreats StreamID = "threats"
	// StreamLastEventDate is the single stream of a blob connector
	StreamLastEventDate StreamID = "last_event_date"
)

var known = []StreamID{StreamTimestampCursor, StreamAlerts, StreamThreats, StreamLastEventDate}

// Known lists every stream id a checkpoint may carry
func Known() []StreamID { return slices.Clone(known) }

// Valid reports whether s is one of the known stream ids
func (s StreamID) Valid() bool { return slices.Contains(known, s) }

// ParseStreamID validates a raw key read back from durable storage
func ParseStreamID(s string) (StreamID, error) {
	id := StreamID(s)
	if !id.Valid() {
		return "", perr.MalformedCheckpointf("unknown checkpoint key %q", s)
	}
	return id, nil
}

// Checkpoints is the full durable state of one connector instance
type Checkpoints map[StreamID]string

// Clone returns an independent copy; nil clones to an empty map
func (c Checkpoints) Clone() Checkpoints {
	out := make(Checkpoints, len(c))
	maps.Copy(out, c)
	return out
}

// FromRaw validates keys of a decoded document
func FromRaw(raw map[string]string) (Checkpoints, error) {
	out := make(Checkpoints, len(raw))
	for k, v := range raw {
		id, err := ParseStreamID(k)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}
