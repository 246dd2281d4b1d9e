package sqldb

import "context"

// Tx Transaction
type Tx interface {
	Handle // statements prepared on a Tx run inside it
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
