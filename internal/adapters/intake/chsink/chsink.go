// Package chsink archives forwarded records into ClickHouse
package chsink

import (
	"context"
	"time"

	"connectors/internal/modkit/repokit"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/store"

	"github.com/google/uuid"
)

// Table and columns written by the sink
//
//	CREATE TABLE intake_archive (
//	  received_at DateTime64(3, 'UTC'),
//	  connector   LowCardinality(String),
//	  event_id    UUID,
//	  raw         String
//	) ENGINE = MergeTree ORDER BY (connector, received_at)
const Table = "intake_archive"

var columns = []string{"received_at", "connector", "event_id", "raw"}

// DefaultChunk bounds the rows per insert
const DefaultChunk = 1000

// Sink implements domain.Forwarder by inserting raw lines
type Sink struct {
	db        store.Clickhouse
	connector string
	chunk     int
	now       func() time.Time
}

// New constructs a Sink over db
func New(db store.Clickhouse, connector string, chunk int) *Sink {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &Sink{db: db, connector: connector, chunk: chunk, now: time.Now}
}

// Push inserts records and returns the generated event ids in input order
func (s *Sink) Push(ctx context.Context, records []string) ([]string, error) {
	if s.db == nil {
		return nil, perr.InvalidArgf("clickhouse sink without a connection")
	}
	db := repokit.CH(ctx, s.db)
	at := s.now().UTC()

	acks := make([]string, 0, len(records))
	for start := 0; start < len(records); start += s.chunk {
		end := min(start+s.chunk, len(records))
		rows := make([][]any, 0, end-start)
		ids := make([]string, 0, end-start)
		for _, raw := range records[start:end] {
			id := uuid.New()
			rows = append(rows, []any{at, s.connector, id, raw})
			ids = append(ids, id.String())
		}
		if err := db.Insert(ctx, Table, columns, rows); err != nil {
			return acks, perr.Wrapf(err, perr.ErrorCodeUnavailable, "archive %d records", len(rows))
		}
		acks = append(acks, ids...)
	}
	return acks, nil
}
