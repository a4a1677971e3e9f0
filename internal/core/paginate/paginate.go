// Package paginate drives offset based pagination over a page fetch function
//
// Two termination rules are supported. CountBased stops once the offset reaches
// the total the source reports; short pages do not stop it because some sources
// return fewer items than the limit mid stream. EmptyPage stops on the first page
// with no records and always advances the offset by the page size. Single
// issues exactly one request, for sources that return a whole window at once.
package paginate

import (
	"context"
	"iter"

	perr "connectors/internal/platform/errors"
)

// Strategy picks the termination rule
type Strategy uint8

const (
	// CountBased stops when offset >= total
	CountBased Strategy = iota
	// EmptyPage stops on the first empty page
	EmptyPage
	// Single issues one request and stops
	Single
)

// String names the strategy for logs
func (s Strategy) String() string {
	switch s {
	case EmptyPage:
		return "empty_page"
	case Single:
		return "single"
	}
	return "count_based"
}

// ParseStrategy maps a config value to a Strategy
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "count", "count_based":
		return CountBased, nil
	case "empty", "empty_page":
		return EmptyPage, nil
	case "single":
		return Single, nil
	}
	return 0, perr.InvalidArgf("unknown pagination strategy %q", s)
}

// Request is one page worth of offset and limit
type Request struct {
	Offset int
	Limit  int
}

// Page is what a fetch returns
// Total is only consulted by CountBased and only when HasTotal is set
type Page[T any] struct {
	Records  []T
	Total    int
	HasTotal bool
	Offset   int
}

// FetchFunc performs one page request
type FetchFunc[T any] func(ctx context.Context, req Request) (Page[T], error)

// Waiter gates each page request; *rate.Limiter satisfies it
type Waiter interface {
	Wait(ctx context.Context) error
}

// Config configures a Paginator
type Config struct {
	PageSize int
	Strategy Strategy
	// Limiter is optional and is waited on before every request
	Limiter Waiter
}

// Paginator walks pages lazily
type Paginator[T any] struct {
	fetch FetchFunc[T]
	cfg   Config
}

// New returns a Paginator; a non positive page size falls back to 100
func New[T any](fetch FetchFunc[T], cfg Config) *Paginator[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &Paginator[T]{fetch: fetch, cfg: cfg}
}

// Pages yields each non terminal page in order
// An error is yielded once and ends the sequence
func (p *Paginator[T]) Pages(ctx context.Context) iter.Seq2[Page[T], error] {
	return func(yield func(Page[T], error) bool) {
		offset := 0
		for {
			if p.cfg.Limiter != nil {
				if err := p.cfg.Limiter.Wait(ctx); err != nil {
					yield(Page[T]{}, err)
					return
				}
			}

			page, err := p.fetch(ctx, Request{Offset: offset, Limit: p.cfg.PageSize})
			if err != nil {
				yield(Page[T]{}, err)
				return
			}
			page.Offset = offset

			switch p.cfg.Strategy {
			case Single:
				if len(page.Records) > 0 {
					yield(page, nil)
				}
				return

			case EmptyPage:
				if len(page.Records) == 0 {
					return
				}
				if !yield(page, nil) {
					return
				}
				offset += p.cfg.PageSize

			default:
				if !page.HasTotal {
					yield(Page[T]{}, perr.Internalf("count based page at offset %d carried no total", offset))
					return
				}
				if !yield(page, nil) {
					return
				}
				offset += p.cfg.PageSize
				if offset >= page.Total {
					return
				}
			}
		}
	}
}

// Each calls fn for every page and stops at the first error from either side
func (p *Paginator[T]) Each(ctx context.Context, fn func(Page[T]) error) error {
	for page, err := range p.Pages(ctx) {
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

// Collect drains every page into one slice
func (p *Paginator[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	err := p.Each(ctx, func(page Page[T]) error {
		out = append(out, page.Records...)
		return nil
	})
	return out, err
}
