package main

import (
	"context"
	"database/sql"
	"time"

	"krishichain/internal/custody"
	dErrors "krishichain/pkg/domain-errors"
	txcontext "krishichain/pkg/platform/tx"
)

const defaultCustodyTxTimeout = 5 * time.Second

// custodyPostgresTx runs custody writes inside a database transaction. The
// transaction rides the context; the postgres stores pick it up there, so the
// same store instances serve both transactional and plain reads.
type custodyPostgresTx struct {
	db      *sql.DB
	stores  custody.Stores
	timeout time.Duration
}

func newCustodyPostgresTx(db *sql.DB, stores custody.Stores) *custodyPostgresTx {
	return &custodyPostgresTx{db: db, stores: stores}
}

func (t *custodyPostgresTx) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context, stores custody.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultCustodyTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.stores); err != nil {
		return err
	}

	return tx.Commit()
}
