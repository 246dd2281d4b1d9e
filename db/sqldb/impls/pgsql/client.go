package pgsql

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeptools/gw-dbclient/db/sqldb"
)

const (
	DBType      = "pgsql"
	DefaultPort = 5432
)

type Client struct {
	Handle // [Embedded] for Promoted Methods
	Conf   *sqldb.Conf
	dsn    string
}

// Ensure pgsql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register makes "pgsql" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return NewClient(conf), nil
	})
}

func NewClient(conf *sqldb.Conf) *Client {
	c := &Client{Conf: conf}
	if conf.DSN != "" {
		c.dsn = conf.DSN
	} else {
		c.dsn = BuildDSN(conf)
	}
	return c
}

// BuildDSN renders the Conf in keyword/value form.
// NOTE: sslmode=disable is often used for local dev, adjust as needed with Conf.DSN.
func BuildDSN(conf *sqldb.Conf) string {
	parts := []string{
		kv("host", conf.Host),
		kv("port", strconv.Itoa(conf.PortOr(DefaultPort))),
		kv("user", conf.User),
		kv("password", conf.PW),
		kv("dbname", conf.DB),
		kv("sslmode", "disable"),
	}
	if conf.TZ != "" {
		parts = append(parts, kv("TimeZone", conf.TZ))
	}
	return strings.Join(parts, " ")
}

var dsnValueEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func kv(key, value string) string {
	return key + "='" + dsnValueEscaper.Replace(value) + "'"
}

func (c *Client) GetConf() *sqldb.Conf {
	return c.Conf
}

func (c *Client) GetDSN() string {
	return c.dsn
}

func (c *Client) Open(ctx context.Context) error {
	config, err := pgxpool.ParseConfig(c.dsn)
	if err != nil {
		return fmt.Errorf("failed to parse pgx config: %w", err)
	}
	maxConns, _, lifetime := c.Conf.PoolLimits()
	config.MaxConns = int32(maxConns)
	if c.Conf.Persistent {
		// keep the one connection around; pgx's default lifetime still recycles it hourly
		config.MinConns = 1
	}
	if lifetime > 0 {
		config.MaxConnLifetime = lifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to connect pgx Pool: %w", err)
	}
	c.Pool = pool
	if err = c.Ping(ctx); err != nil {
		pool.Close()
		c.Pool = nil
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	log.Print("[INFO][pgsql] sql client initialized")
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return sqldb.ErrNotConnected
	}
	return c.Pool.Ping(ctx)
}

func (c *Client) Close() error {
	if c.Pool == nil {
		return nil
	}
	log.Println("[INFO][pgsql] closing sql client")
	c.Pool.Close()
	c.Pool = nil
	log.Println("[INFO][pgsql] sql client closed")
	return nil
}

func (c *Client) BeginTx(ctx context.Context) (sqldb.Tx, error) {
	if c.Pool == nil {
		return nil, sqldb.ErrNotConnected
	}
	tx, err := c.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction failed: %w", err)
	}
	return &Tx{tx: tx}, nil
}
