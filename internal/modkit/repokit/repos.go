// Package repokit holds the seams checkpoint and intake repos are written against
package repokit

import (
	"context"

	"connectors/internal/platform/store"
)

type (
	// Queryer is the read and write surface a bound repo uses
	Queryer = store.RowQuerier

	// TxRunner runs fn inside one transaction
	TxRunner = store.TxRunner

	// Rows is a result set
	Rows = store.Rows

	// Row is a single row result
	Row = store.Row

	// CommandTag reports rows affected by a write
	CommandTag = store.CommandTag
)

// WithTx runs fn inside a transaction on tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}

// PG narrows the postgres seam to a Queryer for schema work outside a tx
func PG(_ context.Context, q TxRunner) Queryer { return q }

// CH exposes the ClickHouse seam without importing the driver
func CH(_ context.Context, db store.Clickhouse) store.Clickhouse { return db }
