// Package restapi adapts vendor REST endpoints to the poller source ports
package restapi

import (
	"context"
	"iter"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"connectors/internal/adapters/httpx"
	"connectors/internal/core/cursor"
	"connectors/internal/core/record"
	perr "connectors/internal/platform/errors"
	"connectors/internal/services/poller/domain"
)

// Options maps a PageQuery onto a vendor endpoint
type Options struct {
	// Path is the list endpoint, e.g. /public_api/v1/alerts
	Path string
	// ItemsPath locates the record array in the response; empty means the body is the array
	ItemsPath string
	// TotalPath locates the total count; empty means the vendor reports none
	TotalPath string

	LowerParam  string
	UpperParam  string
	OffsetParam string
	LimitParam  string
	// TimeFormat renders Lower and Upper in query strings
	TimeFormat cursor.Format

	// ChildPath is a template with {kind} and {id}, e.g. /threats/{id}/{kind}
	ChildPath string
	// ChildItemsPath locates the child array; defaults to ItemsPath
	ChildItemsPath string
}

func (o Options) withDefaults() Options {
	if o.LowerParam == "" {
		o.LowerParam = "from"
	}
	if o.UpperParam == "" {
		o.UpperParam = "to"
	}
	if o.OffsetParam == "" {
		o.OffsetParam = "offset"
	}
	if o.LimitParam == "" {
		o.LimitParam = "limit"
	}
	if o.ChildItemsPath == "" {
		o.ChildItemsPath = o.ItemsPath
	}
	return o
}

// Source serves records and child records from one REST API
type Source struct {
	c    *httpx.Client
	opts Options
}

// New constructs a Source over c
func New(c *httpx.Client, opts Options) *Source {
	return &Source{c: c, opts: opts.withDefaults()}
}

// FetchPage implements domain.RecordSource
func (s *Source) FetchPage(ctx context.Context, q domain.PageQuery) (domain.Page, error) {
	return s.fetch(ctx, s.opts.Path, s.opts.ItemsPath, s.opts.TotalPath, q)
}

// FetchChildren implements domain.ChildSource
func (s *Source) FetchChildren(ctx context.Context, kind, parentID string, q domain.PageQuery) (domain.Page, error) {
	if s.opts.ChildPath == "" {
		return domain.Page{}, perr.InvalidArgf("source has no child path configured")
	}
	path := strings.NewReplacer("{kind}", url.PathEscape(kind), "{id}", url.PathEscape(parentID)).Replace(s.opts.ChildPath)
	return s.fetch(ctx, path, s.opts.ChildItemsPath, "", q)
}

func (s *Source) fetch(ctx context.Context, path, itemsPath, totalPath string, q domain.PageQuery) (domain.Page, error) {
	var body any
	if err := s.c.GetJSON(ctx, path, s.query(q), &body); err != nil {
		return domain.Page{}, err
	}

	items := body
	if itemsPath != "" {
		v, ok := record.Lookup(body, itemsPath)
		if !ok || v == nil {
			return domain.Page{}, nil
		}
		items = v
	}
	recs, ok := record.Records(items)
	if !ok {
		return domain.Page{}, perr.JSONErrf("%s: %q is not an array", path, itemsPath)
	}

	page := domain.Page{Records: recs}
	if totalPath != "" {
		if obj, isObj := body.(map[string]any); isObj {
			page.Total, page.HasTotal = record.Record(obj).Int(totalPath)
		}
	}
	return page, nil
}

func (s *Source) query(q domain.PageQuery) url.Values {
	v := url.Values{}
	if !q.Lower.IsZero() {
		v.Set(s.opts.LowerParam, s.formatTime(q.Lower))
	}
	if !q.Upper.IsZero() {
		v.Set(s.opts.UpperParam, s.formatTime(q.Upper))
	}
	v.Set(s.opts.OffsetParam, strconv.Itoa(q.Offset))
	if q.Limit > 0 {
		v.Set(s.opts.LimitParam, strconv.Itoa(q.Limit))
	}
	return v
}

func (s *Source) formatTime(t time.Time) string {
	if s.opts.TimeFormat == cursor.FormatEpochMillis {
		return strconv.FormatInt(t.UnixMilli(), 10)
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// BlobIndex lists blobs through a JSON index endpoint and downloads them by ref
// the index returns [{"name", "last_modified", "size", "url"}]
type BlobIndex struct {
	c         *httpx.Client
	indexPath string
	param     string
}

// NewBlobIndex constructs a BlobIndex; param carries the lower bound, default "since"
func NewBlobIndex(c *httpx.Client, indexPath, param string) *BlobIndex {
	if param == "" {
		param = "since"
	}
	return &BlobIndex{c: c, indexPath: indexPath, param: param}
}

type blobEntry struct {
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
}

// ListSince implements domain.BlobSource; items come back oldest first
func (b *BlobIndex) ListSince(ctx context.Context, lower time.Time) iter.Seq2[domain.Item, error] {
	return func(yield func(domain.Item, error) bool) {
		var entries []blobEntry
		q := url.Values{b.param: {lower.UTC().Format(time.RFC3339Nano)}}
		if err := b.c.GetJSON(ctx, b.indexPath, q, &entries); err != nil {
			yield(domain.Item{}, err)
			return
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].LastModified.Before(entries[j].LastModified) })
		for _, e := range entries {
			ref := e.URL
			if ref == "" {
				ref = "/" + strings.TrimLeft(e.Name, "/")
			}
			if !yield(domain.Item{Name: e.Name, LastModified: e.LastModified.UTC(), Ref: ref, Size: e.Size}, nil) {
				return
			}
		}
	}
}

// Download implements domain.BlobSource; ref is a path relative to the client base URL
// or an absolute URL such as a signed link
func (b *BlobIndex) Download(ctx context.Context, ref string) ([]byte, error) {
	return b.c.Download(ctx, ref)
}
