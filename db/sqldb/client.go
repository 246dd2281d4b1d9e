package sqldb

import (
	"context"
)

type Client interface {
	Open(ctx context.Context) error
	Close() error
	Handle // Methods required for Handle are also required, so, promote it
	GetConf() *Conf
	GetDSN() string
	Ping(ctx context.Context) error
	BeginTx(ctx context.Context) (Tx, error)
}

// Handle is what statements are prepared on: the Client itself, or an open Tx.
type Handle interface {
	// Exec executes SQL statement like INSERT, UPDATE, DELETE, CREATE.
	Exec(ctx context.Context, query string, args ...any) (Result, error)

	QueryRows(ctx context.Context, query string, args ...any) (Rows, error) // Eager. Fail upfront on statement execution

	// Prepare compiles the query on the server. The query must already use the
	// driver's placeholder syntax (see ParseNamed).
	Prepare(ctx context.Context, query string) (PreparedStmt, error)
}
