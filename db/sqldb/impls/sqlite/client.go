package sqlite

import (
	"errors"
	"strings"

	lowimpl "github.com/mattn/go-sqlite3"
	"github.com/zeptools/gw-dbclient/db/sqldb"
	"github.com/zeptools/gw-dbclient/db/sqldb/impls/stdsql"
)

const DBType = "sqlite"

type Client struct {
	stdsql.Client // [Embedded] database/sql based implementation
}

// Ensure sqlite.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register makes "sqlite" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return NewClient(conf)
	})
}

// NewClient - Conf.DB is the database file path, or ":memory:"
func NewClient(conf *sqldb.Conf) (*Client, error) {
	dsn := conf.DSN
	if dsn == "" {
		if conf.DB == "" {
			return nil, errors.New("sqlite: database file path (db) is required")
		}
		dsn = BuildDSN(conf.DB)
	}
	return &Client{Client: stdsql.Client{
		Conf:       conf,
		DriverName: "sqlite3",
		DSN:        dsn,
		// NOTE: every connection to ":memory:" is a new empty database
		SingleConn: true,
	}}, nil
}

func BuildDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// ErrorCode returns the sqlite result code wrapped in err, if any
func ErrorCode(err error) (lowimpl.ErrNo, bool) {
	var liteErr lowimpl.Error
	if !errors.As(err, &liteErr) {
		return 0, false
	}
	return liteErr.Code, true
}

func IsConstraintViolation(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == lowimpl.ErrConstraint
}
