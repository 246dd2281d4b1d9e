package pgsql

import (
	"github.com/jackc/pgx/v5"
	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type Rows struct {
	current pgx.Rows
}

// Ensure pgsql.Rows implements sqldb.Rows
var _ sqldb.Rows = (*Rows)(nil)

func (r *Rows) Next() bool {
	return r.current.Next()
}

func (r *Rows) Columns() ([]string, error) {
	fields := r.current.FieldDescriptions()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	return names, nil
}

func (r *Rows) Values() ([]any, error) {
	return r.current.Values()
}

func (r *Rows) Close() error {
	r.current.Close()
	return nil
}

func (r *Rows) Err() error {
	return r.current.Err()
}
