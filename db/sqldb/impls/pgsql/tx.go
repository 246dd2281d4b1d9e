package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type Tx struct {
	tx pgx.Tx
}

// Ensure pgsql.Tx implements sqldb.Tx
var _ sqldb.Tx = (*Tx)(nil)

func (t *Tx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *Tx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func (t *Tx) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return newResult(tag), nil
}

func (t *Tx) Query(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{current: rows}, nil
}

func (t *Tx) QueryRows(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	return t.Query(ctx, query, args...)
}

// Prepare - the statement lives on the tx connection, which the tx releases itself
func (t *Tx) Prepare(ctx context.Context, query string) (sqldb.PreparedStmt, error) {
	stmtName := nextStmtName()
	if _, err := t.tx.Prepare(ctx, stmtName, query); err != nil {
		return nil, err
	}
	return &PreparedStmt{conn: t.tx.Conn(), stmtName: stmtName, inTx: true}, nil
}
