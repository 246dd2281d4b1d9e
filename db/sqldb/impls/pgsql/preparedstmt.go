package pgsql

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type PreparedStmt struct {
	conn     *pgx.Conn
	stmtName string
	release  func() // nil when the connection belongs to a tx
	inTx     bool
	closed   bool
}

// Ensure pgsql.PreparedStmt implements sqldb.PreparedStmt interface
var _ sqldb.PreparedStmt = (*PreparedStmt)(nil)

func (p *PreparedStmt) Query(ctx context.Context, args ...any) (sqldb.Rows, error) {
	rows, err := p.conn.Query(ctx, p.stmtName, args...)
	if err != nil {
		return nil, err
	}
	return &Rows{current: rows}, nil
}

func (p *PreparedStmt) Exec(ctx context.Context, args ...any) (sqldb.Result, error) {
	tag, err := p.conn.Exec(ctx, p.stmtName, args...)
	if err != nil {
		return nil, err
	}
	result := newResult(tag)
	if tag.Insert() {
		// read now: the statement, and the session with it, may be gone when the caller asks
		result.lastInsertID, result.lastIDErr = readLastval(ctx, p.conn, p.inTx)
	}
	return result, nil
}

func (p *PreparedStmt) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.conn.Deallocate(ctx, p.stmtName)
	if err != nil {
		log.Printf("[WARN][pgsql] failed to deallocate %s: %v", p.stmtName, err)
	}
	if p.release != nil {
		p.release()
	}
	return err
}
