package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type Result struct {
	tag          pgconn.CommandTag
	lastInsertID int64
	lastIDErr    error // why lastInsertID is unknown
}

// Ensure pgsql.Result implements sqldb.Result
var _ sqldb.Result = (*Result)(nil)

var errNoLastInsertID = errors.New("LastInsertId not supported; use `RETURNING id` instead")

func newResult(tag pgconn.CommandTag) *Result {
	return &Result{tag: tag, lastIDErr: errNoLastInsertID}
}

func (r *Result) RowsAffected() (int64, error) {
	return r.tag.RowsAffected(), nil
}

// LastInsertId is lastval() read right after an INSERT, the value most recently produced by a sequence.
// Fails for tables without a sequence-backed key. Use `RETURNING id` there.
func (r *Result) LastInsertId() (int64, error) {
	if r.lastIDErr != nil {
		return 0, r.lastIDErr
	}
	return r.lastInsertID, nil
}

// readLastval runs on the session of the insert.
// Inside a tx a savepoint keeps a failing lastval() from aborting the tx.
func readLastval(ctx context.Context, conn *pgx.Conn, inTx bool) (int64, error) {
	if inTx {
		if _, err := conn.Exec(ctx, "SAVEPOINT gw_lastval"); err != nil {
			return 0, err
		}
	}
	var id int64
	err := conn.QueryRow(ctx, "SELECT lastval()").Scan(&id)
	if inTx {
		release := "RELEASE SAVEPOINT gw_lastval"
		if err != nil {
			release = "ROLLBACK TO SAVEPOINT gw_lastval"
		}
		if _, spErr := conn.Exec(ctx, release); spErr != nil && err == nil {
			err = spErr
		}
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
