package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	lowimpl "github.com/go-sql-driver/mysql"
	"github.com/zeptools/gw-dbclient/db/sqldb"
	"github.com/zeptools/gw-dbclient/db/sqldb/impls/stdsql"
)

const (
	DBType      = "mysql"
	DefaultPort = 3306
)

type Client struct {
	stdsql.Client // [Embedded] database/sql based implementation
}

// Ensure mysql.Client implements sqldb.Client interface
var _ sqldb.Client = (*Client)(nil)

// Register makes "mysql" available to sqldb.New
func Register() {
	sqldb.RegisterFactory(DBType, func(conf *sqldb.Conf) (sqldb.Client, error) {
		return NewClient(conf)
	})
}

func NewClient(conf *sqldb.Conf) (*Client, error) {
	dsn := conf.DSN
	if dsn == "" {
		var err error
		if dsn, err = BuildDSN(conf); err != nil {
			return nil, err
		}
	}
	return &Client{Client: stdsql.Client{
		Conf:       conf,
		DriverName: "mysql",
		DSN:        dsn,
	}}, nil
}

// BuildDSN renders the Conf as a go-sql-driver DSN.
// Statements are always prepared on the server (interpolateParams=false).
func BuildDSN(conf *sqldb.Conf) (string, error) {
	cfg := lowimpl.NewConfig()
	cfg.User = conf.User
	cfg.Passwd = conf.PW
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(conf.Host, strconv.Itoa(conf.PortOr(DefaultPort)))
	cfg.DBName = conf.DB
	cfg.ParseTime = true
	cfg.InterpolateParams = false
	if conf.TZ != "" {
		loc, err := time.LoadLocation(conf.TZ)
		if err != nil {
			return "", fmt.Errorf("invalid mysql timezone %q: %w", conf.TZ, err)
		}
		cfg.Loc = loc
	}
	cfg.Params = map[string]string{"sql_mode": "ANSI_QUOTES"}
	return cfg.FormatDSN(), nil
}
