package stdsql

import (
	"context"
	"database/sql"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type PreparedStmt struct {
	stmt *sql.Stmt
}

// Ensure stdsql.PreparedStmt implements sqldb.PreparedStmt interface
var _ sqldb.PreparedStmt = (*PreparedStmt)(nil)

func (p *PreparedStmt) Query(ctx context.Context, args ...any) (sqldb.Rows, error) {
	rows, err := p.stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (p *PreparedStmt) Exec(ctx context.Context, args ...any) (sqldb.Result, error) {
	result, err := p.stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return &Result{result: result}, nil
}

func (p *PreparedStmt) Close() error {
	return p.stmt.Close()
}
