package paginate

import (
	"context"
	stderrs "errors"
	"testing"

	perr "connectors/internal/platform/errors"

	"golang.org/x/time/rate"
)

// script serves canned pages and records every request
type script struct {
	pages []Page[int]
	reqs  []Request
	errAt int
}

func (s *script) fetch(_ context.Context, req Request) (Page[int], error) {
	s.reqs = append(s.reqs, req)
	i := len(s.reqs) - 1
	if s.errAt > 0 && i+1 == s.errAt {
		return Page[int]{}, perr.Unavailablef("upstream 503")
	}
	if i >= len(s.pages) {
		return Page[int]{}, nil
	}
	return s.pages[i], nil
}

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func counted(n, total int) Page[int] { return Page[int]{Records: ints(n), Total: total, HasTotal: true} }

func TestCountBased_ContinuesPastShortPages(t *testing.T) {
	s := &script{pages: []Page[int]{counted(100, 250), counted(80, 250), counted(50, 250)}}
	p := New(s.fetch, Config{PageSize: 100, Strategy: CountBased})

	got, err := p.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(s.reqs) != 3 {
		t.Fatalf("fetches = %d, want 3", len(s.reqs))
	}
	for i, want := range []int{0, 100, 200} {
		if s.reqs[i].Offset != want || s.reqs[i].Limit != 100 {
			t.Fatalf("req[%d] = %+v, want offset %d", i, s.reqs[i], want)
		}
	}
	if len(got) != 230 {
		t.Fatalf("records = %d, want 230", len(got))
	}
}

func TestCountBased_SinglePageWhenTotalFits(t *testing.T) {
	s := &script{pages: []Page[int]{counted(3, 3)}}
	p := New(s.fetch, Config{PageSize: 100})
	if _, err := p.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(s.reqs) != 1 {
		t.Fatalf("fetches = %d, want 1", len(s.reqs))
	}
}

func TestCountBased_ZeroTotal(t *testing.T) {
	s := &script{pages: []Page[int]{counted(0, 0)}}
	p := New(s.fetch, Config{PageSize: 100})
	got, err := p.Collect(context.Background())
	if err != nil || len(got) != 0 || len(s.reqs) != 1 {
		t.Fatalf("zero total: got %d records, %d fetches, err %v", len(got), len(s.reqs), err)
	}
}

func TestCountBased_MissingTotalIsAnError(t *testing.T) {
	s := &script{pages: []Page[int]{{Records: ints(5)}}}
	p := New(s.fetch, Config{PageSize: 100})
	if _, err := p.Collect(context.Background()); err == nil {
		t.Fatalf("want error when total is absent")
	}
}

func TestEmptyPage_StopsOnFirstEmpty(t *testing.T) {
	s := &script{pages: []Page[int]{{Records: ints(50)}, {Records: ints(50)}, {}}}
	p := New(s.fetch, Config{PageSize: 50, Strategy: EmptyPage})

	var offsets []int
	err := p.Each(context.Background(), func(page Page[int]) error {
		offsets = append(offsets, page.Offset)
		return nil
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(s.reqs) != 3 {
		t.Fatalf("fetches = %d, want 3", len(s.reqs))
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 50 {
		t.Fatalf("yielded offsets = %v", offsets)
	}
	if s.reqs[2].Offset != 100 {
		t.Fatalf("third request offset = %d, want 100", s.reqs[2].Offset)
	}
}

func TestEmptyPage_AdvancesByPageSizeOnShortPages(t *testing.T) {
	s := &script{pages: []Page[int]{{Records: ints(7)}, {Records: ints(3)}, {}}}
	p := New(s.fetch, Config{PageSize: 50, Strategy: EmptyPage})
	if _, err := p.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if s.reqs[1].Offset != 50 || s.reqs[2].Offset != 100 {
		t.Fatalf("offsets = %+v", s.reqs)
	}
}

func TestFetchErrorEndsSequence(t *testing.T) {
	s := &script{pages: []Page[int]{counted(100, 500), counted(100, 500)}, errAt: 2}
	p := New(s.fetch, Config{PageSize: 100})

	seen := 0
	var gotErr error
	for page, err := range p.Pages(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		seen += len(page.Records)
	}
	if seen != 100 || !perr.IsTransient(gotErr) {
		t.Fatalf("seen %d, err %v", seen, gotErr)
	}
	if len(s.reqs) != 2 {
		t.Fatalf("no request should follow an error, got %d", len(s.reqs))
	}
}

func TestEachStopsOnCallbackError(t *testing.T) {
	s := &script{pages: []Page[int]{counted(100, 500), counted(100, 500)}}
	p := New(s.fetch, Config{PageSize: 100})
	boom := stderrs.New("boom")
	if err := p.Each(context.Background(), func(Page[int]) error { return boom }); err != boom {
		t.Fatalf("Each err = %v", err)
	}
	if len(s.reqs) != 1 {
		t.Fatalf("fetches after callback error = %d", len(s.reqs))
	}
}

type countingWaiter struct{ n int }

func (w *countingWaiter) Wait(context.Context) error { w.n++; return nil }

func TestLimiterWaitedBeforeEveryRequest(t *testing.T) {
	s := &script{pages: []Page[int]{{Records: ints(1)}, {Records: ints(1)}, {}}}
	w := &countingWaiter{}
	p := New(s.fetch, Config{PageSize: 1, Strategy: EmptyPage, Limiter: w})
	if _, err := p.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if w.n != 3 {
		t.Fatalf("waits = %d, want 3", w.n)
	}
}

func TestRateLimiterSatisfiesWaiter(t *testing.T) {
	var _ Waiter = rate.NewLimiter(rate.Inf, 1)
	s := &script{pages: []Page[int]{counted(2, 2)}}
	p := New(s.fetch, Config{PageSize: 10, Limiter: rate.NewLimiter(rate.Inf, 1)})
	if _, err := p.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
}

func TestDefaultPageSize(t *testing.T) {
	s := &script{pages: []Page[int]{counted(1, 1)}}
	_, _ = New(s.fetch, Config{}).Collect(context.Background())
	if s.reqs[0].Limit != 100 {
		t.Fatalf("default limit = %d", s.reqs[0].Limit)
	}
}

func TestSingle_OneRequest(t *testing.T) {
	s := &script{pages: []Page[int]{{Records: ints(7)}, {Records: ints(7)}}}
	got, err := New(s.fetch, Config{PageSize: 50, Strategy: Single}).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(s.reqs) != 1 || len(got) != 7 {
		t.Fatalf("reqs = %d records = %d", len(s.reqs), len(got))
	}

	empty := &script{}
	pages := 0
	for _, err := range New(empty.fetch, Config{Strategy: Single}).Pages(context.Background()) {
		if err != nil {
			t.Fatal(err)
		}
		pages++
	}
	if pages != 0 || len(empty.reqs) != 1 {
		t.Fatalf("empty single: pages = %d reqs = %d", pages, len(empty.reqs))
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": CountBased, "count": CountBased, "empty_page": EmptyPage, "single": Single} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("cursor"); err == nil {
		t.Fatalf("unknown strategy accepted")
	}
	if Single.String() != "single" || EmptyPage.String() != "empty_page" || CountBased.String() != "count_based" {
		t.Fatalf("String mismatch")
	}
}
