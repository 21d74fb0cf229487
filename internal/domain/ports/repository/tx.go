package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// Its concrete type is infra-defined (pgx.Tx for Postgres); repositories
// accept nil for the non-transactional path.
type Tx interface{}

// TransactionManager executes a function inside a database transaction,
// passing the handle by value so use-case interfaces stay free of storage
// types and no global session leaks around. If fn returns an error the
// transaction is rolled back, otherwise committed.
//
//	tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(ctx context.Context, tx repository.Tx) error {
//	    p, err := payments.FindByID(ctx, tx, id)
//	    ...
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
