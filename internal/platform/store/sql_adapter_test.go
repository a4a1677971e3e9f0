package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectors/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recTracer struct{ events []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.events = append(r.events, ev) }

type scanRow struct{ err error }

func (s scanRow) Scan(dst ...any) error {
	if s.err != nil {
		return s.err
	}
	*(dst[0].(*int)) = 1
	return nil
}

type fakePgx struct {
	execErr  error
	queryErr error
	rowErr   error
}

func (f fakePgx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f fakePgx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

func (f fakePgx) QueryRow(context.Context, string, ...any) pgx.Row { return scanRow{err: f.rowErr} }

// stepClock advances by step on every read
func stepClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestTraced_ExecReportsElapsedAndSlow(t *testing.T) {
	tr := &recTracer{}
	q := traced{q: fakePgx{}, tracer: tr, slow: 100 * time.Millisecond, now: stepClock(150 * time.Millisecond)}

	tag, err := q.Exec(context.Background(), "INSERT INTO connector_checkpoints VALUES ($1)", "x")
	if err != nil || tag.RowsAffected() != 1 {
		t.Fatalf("Exec = %v, %v", tag, err)
	}
	if len(tr.events) != 1 {
		t.Fatalf("events = %d", len(tr.events))
	}
	ev := tr.events[0]
	if ev.ElapsedUS != 150_000 || !ev.Slow || ev.Err != nil {
		t.Fatalf("event = %+v", ev)
	}
}

func TestTraced_QueryRowReportsScanError(t *testing.T) {
	tr := &recTracer{}
	boom := errors.New("no rows")
	q := traced{q: fakePgx{rowErr: boom}, tracer: tr, slow: -1, now: stepClock(time.Millisecond)}

	var n int
	if err := q.QueryRow(context.Background(), "SELECT 1").Scan(&n); !errors.Is(err, boom) {
		t.Fatalf("Scan = %v", err)
	}
	if len(tr.events) != 1 || !errors.Is(tr.events[0].Err, boom) || tr.events[0].Slow {
		t.Fatalf("events = %+v", tr.events)
	}
}

func TestTraced_QueryErrorAndNoTracer(t *testing.T) {
	boom := errors.New("relation does not exist")
	q := traced{q: fakePgx{queryErr: boom}, now: time.Now}
	if _, err := q.Query(context.Background(), "SELECT stream FROM nope"); !errors.Is(err, boom) {
		t.Fatalf("Query = %v", err)
	}
}

func TestPGAdapter_NilPing(t *testing.T) {
	var a *pgAdapter
	if err := a.Ping(context.Background()); err == nil {
		t.Fatalf("nil adapter should fail Ping")
	}
}
