package repo

import (
	"context"
	"slices"

	"connectors/internal/modkit/repokit"
	perr "connectors/internal/platform/errors"
	"connectors/internal/platform/store"
	"connectors/internal/services/checkpoint/domain"
)

// SchemaSQL creates the checkpoint table; it is safe to run on every boot
const SchemaSQL = `
	CREATE TABLE IF NOT EXISTS connector_checkpoints (
		connector  text        NOT NULL,
		stream     text        NOT NULL,
		value      text        NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (connector, stream)
	)
`

type (
	// PG is a Postgres binder for domain.Queries
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.Queries
func NewPG() repokit.Binder[domain.Queries] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Queries { return &queries{q: q} }

// EnsureSchema creates the checkpoint table when missing
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	_, err := store.Exec(ctx, q, SchemaSQL)
	return perr.FromPostgres(err, "create connector_checkpoints")
}

// AdvisoryLock serializes checkpoint transactions of one connector across processes
func AdvisoryLock(connector string) repokit.BeginHook {
	return func(ctx context.Context, q repokit.Queryer) error {
		_, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "connector_checkpoints:"+connector)
		return perr.FromPostgres(err, "lock connector checkpoints")
	}
}

type kv struct{ stream, value string }

// Load returns every checkpoint row of connector
func (r *queries) Load(ctx context.Context, connector string) (domain.Checkpoints, error) {
	rows, err := store.Many(ctx, r.q, func(row store.Row) (kv, error) {
		var out kv
		err := row.Scan(&out.stream, &out.value)
		return out, err
	}, `
		SELECT stream, value
		FROM connector_checkpoints
		WHERE connector = $1
	`, connector)
	if err != nil {
		return nil, perr.FromPostgresf(err, "load checkpoints for %s", connector)
	}

	raw := make(map[string]string, len(rows))
	for _, row := range rows {
		raw[row.stream] = row.value
	}
	return domain.FromRaw(raw)
}

// Upsert writes every checkpoint in cps for connector
// streams absent from cps are left as they are
func (r *queries) Upsert(ctx context.Context, connector string, cps domain.Checkpoints) error {
	keys := make([]domain.StreamID, 0, len(cps))
	for k := range cps {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		_, err := r.q.Exec(ctx, `
			INSERT INTO connector_checkpoints (connector, stream, value, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (connector, stream) DO UPDATE
			SET value = EXCLUDED.value, updated_at = now()
			WHERE connector_checkpoints.value IS DISTINCT FROM EXCLUDED.value
		`, connector, string(k), cps[k])
		if err != nil {
			return perr.FromPostgresf(err, "upsert checkpoint %s/%s", connector, k)
		}
	}
	return nil
}

// PGBackend runs checkpoint reads and updates in postgres transactions
// guarded by a per connector advisory lock
type PGBackend struct {
	tx        repokit.TxRunner
	binder    repokit.Binder[domain.Queries]
	connector string
}

// NewPGBackend wires a TxRunner into a domain.Backend for connector
func NewPGBackend(tx repokit.TxRunner, connector string) *PGBackend {
	return &PGBackend{
		tx:        repokit.WithBeginHooks(tx, AdvisoryLock(connector)),
		binder:    NewPG(),
		connector: connector,
	}
}

// Read loads the connector's checkpoints in one transaction
func (b *PGBackend) Read(ctx context.Context) (domain.Checkpoints, error) {
	var out domain.Checkpoints
	err := repokit.WithTx(ctx, b.tx, func(q repokit.Queryer) error {
		cps, err := repokit.MustBind(b.binder, q).Load(ctx, b.connector)
		out = cps
		return err
	})
	return out, err
}

// Update runs load, fn and upsert inside a single transaction
func (b *PGBackend) Update(ctx context.Context, fn func(domain.Checkpoints) error) error {
	return repokit.WithTx(ctx, b.tx, func(q repokit.Queryer) error {
		qs := repokit.MustBind(b.binder, q)
		cur, err := qs.Load(ctx, b.connector)
		if err != nil {
			return err
		}
		next := cur.Clone()
		if err := fn(next); err != nil {
			return err
		}
		changed := domain.Checkpoints{}
		for k, v := range next {
			if old, ok := cur[k]; !ok || old != v {
				changed[k] = v
			}
		}
		return qs.Upsert(ctx, b.connector, changed)
	})
}
