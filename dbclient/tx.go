package dbclient

import (
	"context"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

// detachedStmt keeps what is needed to re-prepare a statement on another handle
type detachedStmt struct {
	query    string
	params   map[string]sqldb.Param
	rowCount int64
}

func (d *Database) detachStatement() *detachedStmt {
	if d.stmt == nil {
		return nil
	}
	saved := &detachedStmt{query: d.stmt.query.Raw, params: d.stmt.params, rowCount: d.stmt.rowCount}
	d.discardStatement()
	return saved
}

func (d *Database) reattachStatement(ctx context.Context, saved *detachedStmt) error {
	if saved == nil {
		return nil
	}
	stmt, err := d.prepare(ctx, saved.query)
	if err != nil {
		return err
	}
	stmt.params = saved.params
	stmt.rowCount = saved.rowCount
	d.stmt = stmt
	return nil
}

// BeginTransaction starts a transaction. The current statement, if any,
// is prepared again inside it with its bindings and RowCount kept.
// An open Fetch cursor is closed, so the next Fetch executes from the first row.
func (d *Database) BeginTransaction(ctx context.Context) (bool, error) {
	if err := d.requireConnected(); err != nil {
		return false, err
	}
	if d.tx != nil {
		return false, sqldb.WrapDriverError("begin", "", sqldb.ErrTxActive)
	}
	saved := d.detachStatement()
	tx, err := d.client.BeginTx(ctx)
	d.Metrics.count("begin", err)
	if err != nil {
		_ = d.reattachStatement(ctx, saved)
		return false, sqldb.WrapDriverError("begin", "", err)
	}
	d.tx = tx
	// the transaction is open even if the statement could not follow it
	return true, d.reattachStatement(ctx, saved)
}

// CommitTransaction commits the open transaction.
// The current statement moves back to the client like in BeginTransaction.
func (d *Database) CommitTransaction(ctx context.Context) (bool, error) {
	return d.endTransaction(ctx, "commit", sqldb.Tx.Commit)
}

// RollBackTransaction rolls back the open transaction.
// The current statement moves back to the client like in BeginTransaction.
func (d *Database) RollBackTransaction(ctx context.Context) (bool, error) {
	return d.endTransaction(ctx, "rollback", sqldb.Tx.Rollback)
}

func (d *Database) endTransaction(ctx context.Context, op string, end func(sqldb.Tx, context.Context) error) (bool, error) {
	if err := d.requireConnected(); err != nil {
		return false, err
	}
	if d.tx == nil {
		return false, sqldb.WrapDriverError(op, "", sqldb.ErrNoTransaction)
	}
	// statements die with the tx connection: close first, prepare again on the client after
	saved := d.detachStatement()
	err := end(d.tx, ctx)
	d.Metrics.count(op, err)
	d.tx = nil
	if err != nil {
		_ = d.reattachStatement(ctx, saved)
		return false, sqldb.WrapDriverError(op, "", err)
	}
	return true, d.reattachStatement(ctx, saved)
}
