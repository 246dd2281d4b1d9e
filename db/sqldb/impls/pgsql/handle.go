package pgsql

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type Handle struct {
	*pgxpool.Pool // [Embedded]
}

var _ sqldb.Handle = (*Handle)(nil)

func (h *Handle) Exec(ctx context.Context, query string, args ...any) (sqldb.Result, error) {
	if h.Pool == nil {
		return nil, sqldb.ErrNotConnected
	}
	tag, err := h.Pool.Exec(ctx, query, args...)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return newResult(tag), nil
}

func (h *Handle) QueryRows(ctx context.Context, query string, args ...any) (sqldb.Rows, error) {
	if h.Pool == nil {
		return nil, sqldb.ErrNotConnected
	}
	rows, err := h.Pool.Query(ctx, query, args...)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	return &Rows{current: rows}, nil
}

// Prepare holds one pooled connection until the statement is closed
func (h *Handle) Prepare(ctx context.Context, query string) (sqldb.PreparedStmt, error) {
	if h.Pool == nil {
		return nil, sqldb.ErrNotConnected
	}
	conn, err := h.Pool.Acquire(ctx)
	// NOTE: We can process a DBMS-specific error to produce a better abstracted error
	if err != nil {
		return nil, err
	}
	stmtName := nextStmtName()
	if _, err = conn.Conn().Prepare(ctx, stmtName, query); err != nil {
		conn.Release()
		return nil, err
	}
	return &PreparedStmt{conn: conn.Conn(), stmtName: stmtName, release: conn.Release}, nil
}

var stmtSeq atomic.Uint64

func nextStmtName() string {
	return fmt.Sprintf("stmt_%x_%d", time.Now().UnixNano(), stmtSeq.Add(1))
}
