// Package stdsql adapts database/sql to the sqldb interfaces.
// Driver packages (mysql, sqlite) embed Client and only build the DSN.
package stdsql

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type Client struct {
	Handle     // [Embedded] for Promoted Methods
	Conf       *sqldb.Conf
	DriverName string // database/sql driver name
	DSN        string
	SingleConn bool // one connection for the whole pool, e.g. sqlite in-memory
}

// Ensure stdsql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}

func (c *Client) GetDSN() string {
	return c.DSN
}

func (c *Client) Open(ctx context.Context) error {
	db, err := sql.Open(c.DriverName, c.DSN)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.DriverName, err)
	}
	maxOpen, maxIdle, lifetime := c.Conf.PoolLimits()
	if c.SingleConn {
		maxOpen, maxIdle = 1, 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(lifetime)
	c.Handle = Handle{conn: db}
	if err = c.Ping(ctx); err != nil {
		_ = db.Close()
		c.Handle = Handle{}
		return err
	}
	log.Printf("[INFO][%s] sql client initialized", c.Conf.Type)
	return nil
}

func (c *Client) db() *sql.DB {
	db, _ := c.conn.(*sql.DB)
	return db
}

// DB exposes the underlying pool, nil before Open
func (c *Client) DB() *sql.DB {
	return c.db()
}

func (c *Client) Ping(ctx context.Context) error {
	db := c.db()
	if db == nil {
		return sqldb.ErrNotConnected
	}
	return db.PingContext(ctx)
}

func (c *Client) Close() error {
	db := c.db()
	if db == nil {
		return nil
	}
	log.Printf("[INFO][%s] closing sql client", c.Conf.Type)
	c.Handle = Handle{}
	if err := db.Close(); err != nil {
		return err
	}
	log.Printf("[INFO][%s] sql client closed", c.Conf.Type)
	return nil
}

func (c *Client) BeginTx(ctx context.Context) (sqldb.Tx, error) {
	db := c.db()
	if db == nil {
		return nil, sqldb.ErrNotConnected
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{Handle: Handle{conn: tx}, tx: tx}, nil
}
