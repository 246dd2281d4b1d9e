package stdsql

import (
	"context"
	"database/sql"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

// conn is satisfied by both *sql.DB and *sql.Tx
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type Handle struct {
	conn conn
}

// Ensure stdsql.Handle implements sqldb.Handle interface
var _ sqldb.Handle = (*Handle)(nil)

func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	if h.conn == nil {
		return nil, sqldb.ErrNotConnected
	}
	result, err := h.conn.ExecContext(ctx, query, args...)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return &Result{result: result}, nil
}

func (h *Handle) QueryRows(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	if h.conn == nil {
		return nil, sqldb.ErrNotConnected
	}
	rows, err := h.conn.QueryContext(ctx, query, args...)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (h *Handle) Prepare(ctx context.Context, query string) (sqldb.PreparedStmt, error) {
	if h.conn == nil {
		return nil, sqldb.ErrNotConnected
	}
	stmt, err := h.conn.PrepareContext(ctx, query)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return &PreparedStmt{stmt: stmt}, nil
}
