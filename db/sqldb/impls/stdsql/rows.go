package stdsql

import (
	"database/sql"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type Rows struct {
	rows *sql.Rows
}

// Ensure stdsql.Rows implements sqldb.Rows interface
var _ sqldb.Rows = (*Rows)(nil)

func (r *Rows) Next() bool {
	return r.rows.Next()
}

func (r *Rows) Columns() ([]string, error) {
	return r.rows.Columns()
}

func (r *Rows) Values() ([]any, error) {
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	targets := make([]any, len(cols))
	for i := range values {
		targets[i] = &values[i]
	}
	if err = r.rows.Scan(targets...); err != nil {
		return nil, err
	}
	for i, v := range values {
		// drivers hand out text as []byte, only valid until the next Scan
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

func (r *Rows) Close() error {
	return r.rows.Close()
}

func (r *Rows) Err() error {
	return r.rows.Err()
}
