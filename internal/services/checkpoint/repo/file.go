// Package repo provides the durable checkpoint backends: a JSON file and a postgres table
package repo

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	perr "connectors/internal/platform/errors"
	"connectors/internal/services/checkpoint/domain"

	"github.com/goccy/go-json"
)

// seams for tests
var (
	rename    = os.Rename
	readFile  = os.ReadFile
	createTmp = os.CreateTemp
)

// File keeps every checkpoint of a connector in one JSON object
// Writes go to a temp file in the same directory which is synced and renamed over the target
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a file backend rooted at path; the parent directory is created on first write
func NewFile(path string) *File { return &File{path: path} }

// Path is the target file
func (f *File) Path() string { return f.path }

// Read loads the document; a missing file is an empty state
func (f *File) Read(_ context.Context) (domain.Checkpoints, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Update reads, applies fn to a copy, and replaces the file atomically
func (f *File) Update(_ context.Context, fn func(domain.Checkpoints) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, err := f.load()
	if err != nil {
		return err
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	return f.store(next)
}

func (f *File) load() (domain.Checkpoints, error) {
	b, err := readFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Checkpoints{}, nil
	}
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "read checkpoint file %s", f.path)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return domain.Checkpoints{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeMalformedCheckpoint, "checkpoint file %s is not a JSON object", f.path)
	}

	raw := make(map[string]string, len(doc))
	for k, v := range doc {
		switch x := v.(type) {
		case string:
			raw[k] = x
		case json.Number:
			raw[k] = x.String()
		default:
			return nil, perr.MalformedCheckpointf("checkpoint %q holds %T, want a string or number", k, v)
		}
	}
	return domain.FromRaw(raw)
}

func (f *File) store(cps domain.Checkpoints) (err error) {
	doc := make(map[string]any, len(cps))
	for k, v := range cps {
		if isInteger(v) {
			doc[string(k)] = json.Number(v)
		} else {
			doc[string(k)] = v
		}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode checkpoints")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "create checkpoint dir %s", dir)
	}

	tmp, err := createTmp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "create temp checkpoint in %s", dir)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(append(b, '\n')); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "write temp checkpoint")
	}
	if err = tmp.Sync(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "sync temp checkpoint")
	}
	if err = tmp.Close(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "close temp checkpoint")
	}
	if err = rename(tmp.Name(), f.path); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "replace checkpoint file %s", f.path)
	}
	syncDir(dir)
	return nil
}

// syncDir makes the rename durable where the platform allows it
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
