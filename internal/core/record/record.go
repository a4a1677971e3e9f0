// Package record holds the generic JSON record shape sources return
package record

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	perr "connectors/internal/platform/errors"

	json "github.com/goccy/go-json"
)

// Record is one decoded JSON object; numbers are kept as json.Number
type Record map[string]any

func decoder(raw []byte) *json.Decoder {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec
}

// Decode parses a single JSON object
func Decode(raw []byte) (Record, error) {
	var r Record
	if err := decoder(raw).Decode(&r); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "decode record")
	}
	return r, nil
}

// DecodeAny parses any JSON document with numbers kept as json.Number
func DecodeAny(raw []byte) (any, error) {
	var v any
	if err := decoder(raw).Decode(&v); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeJSON, "decode document")
	}
	return v, nil
}

// Encode serializes the record compactly
func (r Record) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeJSON, "encode record")
	}
	return string(b), nil
}

// EncodeAll serializes records in order
func EncodeAll(rs []Record) ([]string, error) {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		s, err := r.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Lookup walks a dotted path such as "attributes.detectionDate"
func (r Record) Lookup(path string) (any, bool) {
	return Lookup(map[string]any(r), path)
}

// Lookup walks a dotted path through nested objects
func Lookup(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, key := range strings.Split(path, ".") {
		var m map[string]any
		switch t := cur.(type) {
		case Record:
			m = t
		case map[string]any:
			m = t
		default:
			return nil, false
		}
		next, ok := m[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// ID returns the value at path rendered as a string
// null, empty and missing all report false
func (r Record) ID(path string) (string, bool) {
	v, ok := r.Lookup(path)
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// With returns a shallow copy carrying key=value
func (r Record) With(key string, value any) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[key] = value
	return out
}

// Without returns a shallow copy lacking key
func (r Record) Without(key string) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// Records converts a decoded JSON array into records, skipping non objects
func Records(v any) ([]Record, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Record, 0, len(arr))
	for _, item := range arr {
		switch m := item.(type) {
		case map[string]any:
			out = append(out, Record(m))
		case Record:
			out = append(out, m)
		}
	}
	return out, true
}

// Int reads a numeric value at path
func (r Record) Int(path string) (int, bool) {
	v, ok := r.Lookup(path)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case float64:
		return int(t), true
	case int:
		return t, true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	}
	return 0, false
}

// TimeLayout is how a record carries its event time
type TimeLayout uint8

const (
	// LayoutISO8601 is an RFC 3339 style string
	LayoutISO8601 TimeLayout = iota
	// LayoutEpochMillis is integer milliseconds
	LayoutEpochMillis
	// LayoutEpochSeconds is integer or fractional seconds
	LayoutEpochSeconds
)

// ParseTimeLayout maps a config value to a TimeLayout
func ParseTimeLayout(s string) (TimeLayout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iso", "iso8601", "rfc3339":
		return LayoutISO8601, nil
	case "epoch_millis", "epoch_ms", "millis":
		return LayoutEpochMillis, nil
	case "epoch_seconds", "epoch", "seconds":
		return LayoutEpochSeconds, nil
	}
	return 0, perr.InvalidArgf("unknown time layout %q", s)
}

// TimeField locates the event time inside a record
type TimeField struct {
	Path   string
	Layout TimeLayout
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Extract returns the record's event time
// ok is false when the field is absent or null; a present but unreadable value is an error
func (f TimeField) Extract(r Record) (t time.Time, ok bool, err error) {
	if f.Path == "" {
		return time.Time{}, false, nil
	}
	v, found := r.Lookup(f.Path)
	if !found || v == nil {
		return time.Time{}, false, nil
	}

	switch f.Layout {
	case LayoutEpochMillis, LayoutEpochSeconds:
		var n float64
		switch x := v.(type) {
		case json.Number:
			n, err = x.Float64()
		case float64:
			n = x
		case string:
			n, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
		default:
			err = perr.InvalidArgf("field %s is %T, want a number", f.Path, v)
		}
		if err != nil {
			return time.Time{}, false, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "time field %s", f.Path)
		}
		if f.Layout == LayoutEpochMillis {
			return time.UnixMilli(int64(n)).UTC(), true, nil
		}
		sec := int64(n)
		return time.Unix(sec, int64((n-float64(sec))*1e9)).UTC(), true, nil

	default:
		s, isStr := v.(string)
		if !isStr {
			return time.Time{}, false, perr.InvalidArgf("time field %s is %T, want a string", f.Path, v)
		}
		for _, layout := range isoLayouts {
			if ts, parseErr := time.Parse(layout, strings.TrimSpace(s)); parseErr == nil {
				return ts.UTC(), true, nil
			}
		}
		return time.Time{}, false, perr.InvalidArgf("time field %s has unreadable value %q", f.Path, s)
	}
}
