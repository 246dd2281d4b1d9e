// Package dbclient is a single-handle convenience layer over the sqldb drivers:
// connect, prepare one statement with `:name` placeholders, bind, execute, fetch.
package dbclient

import (
	"context"
	"fmt"
	"log"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

// State tells whether a Database holds an open client
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Database owns one driver client and one prepared statement slot.
// It is meant for a single goroutine, e.g. one per request. Use one Database per goroutine.
type Database struct {
	Conf     *sqldb.Conf         // set before Connect. not modified by Database
	RawStore *sqldb.RawSQLStore  // optional. statements for PrepareStored
	Metrics  *Metrics            // optional
	Factory  sqldb.ClientFactory // optional. defaults to the factory registered for Conf.Type

	state      State
	client     sqldb.Client
	tx         sqldb.Tx
	stmt       *statement
	lastResult sqldb.Result
}

// New returns a disconnected Database for conf
func New(conf *sqldb.Conf) *Database {
	return &Database{Conf: conf}
}

// State is Connected from the start of Connect until Close or a failed Connect
func (d *Database) State() State {
	return d.state
}

// InTransaction reports whether a transaction is open
func (d *Database) InTransaction() bool {
	return d.tx != nil
}

// Client exposes the driver client, nil while disconnected
func (d *Database) Client() sqldb.Client {
	return d.client
}

// Connect opens and pings the driver client for Conf.
// The state turns Connected before the attempt and back to Disconnected if it fails.
func (d *Database) Connect(ctx context.Context) error {
	if d.Conf == nil {
		return &sqldb.DriverError{Op: "connect", Err: fmt.Errorf("no connection config")}
	}
	if d.client != nil {
		return nil
	}
	d.state = Connected
	client, err := d.newClient()
	if err == nil {
		err = client.Open(ctx)
	}
	d.Metrics.count("connect", err)
	if err != nil {
		d.state = Disconnected
		return sqldb.WrapDriverError("connect", "", err)
	}
	d.client = client
	return nil
}

func (d *Database) newClient() (sqldb.Client, error) {
	if d.Factory != nil {
		return d.Factory(d.Conf)
	}
	return sqldb.New(d.Conf.Type, d.Conf)
}

// Close releases the statement, rolls back a dangling transaction and closes the client.
func (d *Database) Close() error {
	d.state = Disconnected
	if d.client == nil {
		return nil
	}
	d.discardStatement()
	d.lastResult = nil
	if d.tx != nil {
		if err := d.tx.Rollback(context.Background()); err != nil {
			log.Printf("[WARN][%s] rollback on close failed: %v", d.Conf.Type, err)
		}
		d.tx = nil
	}
	client := d.client
	d.client = nil
	return client.Close()
}

func (d *Database) requireConnected() error {
	if d.client == nil {
		return sqldb.ErrNotConnected
	}
	return nil
}

// handle is where statements are prepared: the open transaction, else the client
func (d *Database) handle() sqldb.Handle {
	if d.tx != nil {
		return d.tx
	}
	return d.client
}
