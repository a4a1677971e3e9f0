package fsblob

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	perr "connectors/internal/platform/errors"
	kit "connectors/internal/platform/testkit"
)

func touch(t *testing.T, path, content string, at time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, at, at); err != nil {
		t.Fatal(err)
	}
}

func TestListSince_FiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	lower := time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "old.log"), "old", lower.Add(-time.Minute))
	touch(t, filepath.Join(dir, "edge.log"), "edge", lower)
	touch(t, filepath.Join(dir, "y", "new.log"), "new", lower.Add(20*time.Minute))
	touch(t, filepath.Join(dir, "mid.log"), "mid", lower.Add(10*time.Minute))
	touch(t, filepath.Join(dir, "skip.txt"), "skip", lower.Add(30*time.Minute))
	touch(t, filepath.Join(dir, ".hidden.log"), "h", lower.Add(30*time.Minute))

	src := New(dir, ".log")
	var names []string
	for it, err := range src.ListSince(context.Background(), lower) {
		if err != nil {
			t.Fatalf("ListSince: %v", err)
		}
		names = append(names, it.Name)
	}
	if len(names) != 2 || names[0] != "mid.log" || names[1] != "y/new.log" {
		t.Fatalf("names = %v", names)
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.log")
	touch(t, p, "line\n", time.Now())
	b, err := New(dir).Download(context.Background(), p)
	if err != nil || string(b) != "line\n" {
		t.Fatalf("Download = %q %v", b, err)
	}
	_, err = New(dir).Download(context.Background(), filepath.Join(dir, "gone"))
	kit.MustCode(t, err, perr.ErrorCodeNotFound)
}

func TestListSince_MissingRootIsTransient(t *testing.T) {
	src := New(filepath.Join(t.TempDir(), "nope"))
	for _, err := range src.ListSince(context.Background(), time.Time{}) {
		if !perr.IsTransient(err) {
			t.Fatalf("err = %v", err)
		}
		return
	}
	t.Fatalf("expected an error item")
}
