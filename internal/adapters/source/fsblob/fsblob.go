// Package fsblob serves a directory tree as a blob container
// Mounted containers and local drop folders look the same to the blob stream
package fsblob

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	perr "connectors/internal/platform/errors"
	"connectors/internal/services/poller/domain"
)

// Dir lists regular files under root
type Dir struct {
	root   string
	suffix []string
}

// New constructs a Dir; suffixes filter names when given, e.g. ".log", ".json.gz"
func New(root string, suffixes ...string) *Dir {
	return &Dir{root: root, suffix: suffixes}
}

// ListSince implements domain.BlobSource
// files modified at or before lower are skipped; the rest come back oldest first
func (d *Dir) ListSince(ctx context.Context, lower time.Time) iter.Seq2[domain.Item, error] {
	return func(yield func(domain.Item, error) bool) {
		var items []domain.Item
		err := filepath.WalkDir(d.root, func(path string, e fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if e.IsDir() || !d.match(e.Name()) {
				return nil
			}
			fi, err := e.Info()
			if err != nil {
				return err
			}
			if !fi.Mode().IsRegular() || !fi.ModTime().After(lower) {
				return nil
			}
			rel, _ := filepath.Rel(d.root, path)
			items = append(items, domain.Item{
				Name:         filepath.ToSlash(rel),
				LastModified: fi.ModTime().UTC(),
				Ref:          path,
				Size:         fi.Size(),
			})
			return nil
		})
		if err != nil {
			yield(domain.Item{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "list %s", d.root))
			return
		}

		sort.SliceStable(items, func(i, j int) bool {
			if items[i].LastModified.Equal(items[j].LastModified) {
				return items[i].Name < items[j].Name
			}
			return items[i].LastModified.Before(items[j].LastModified)
		})
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

// Download implements domain.BlobSource
func (d *Dir) Download(_ context.Context, ref string) ([]byte, error) {
	b, err := os.ReadFile(ref)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "blob %s vanished", ref)
		}
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "read blob %s", ref)
	}
	return b, nil
}

func (d *Dir) match(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if len(d.suffix) == 0 {
		return true
	}
	for _, s := range d.suffix {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
