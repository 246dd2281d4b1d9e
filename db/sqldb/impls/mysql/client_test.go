package mysql

import (
	"fmt"
	"testing"

	lowimpl "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/gw-dbclient/db/sqldb"
)

func TestBuildDSN(t *testing.T) {
	conf := &sqldb.Conf{
		Type: DBType,
		Host: "db.local",
		User: "app",
		PW:   "s3cret",
		DB:   "shop",
		TZ:   "Europe/Berlin",
	}
	dsn, err := BuildDSN(conf)
	require.NoError(t, err)
	assert.Contains(t, dsn, "app:s3cret@tcp(db.local:3306)/shop?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "loc=Europe%2FBerlin")
	assert.Contains(t, dsn, "sql_mode=ANSI_QUOTES")
	assert.NotContains(t, dsn, "interpolateParams=true")

	parsed, err := lowimpl.ParseDSN(dsn)
	require.NoError(t, err)
	assert.False(t, parsed.InterpolateParams)
	assert.Equal(t, "shop", parsed.DBName)
}

func TestBuildDSN_InvalidTZ(t *testing.T) {
	_, err := BuildDSN(&sqldb.Conf{Host: "h", TZ: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestNewClient_DSNOverride(t *testing.T) {
	conf := &sqldb.Conf{Type: DBType, DSN: "u:p@tcp(x:1)/y"}
	c, err := NewClient(conf)
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(x:1)/y", c.GetDSN())
	assert.Same(t, conf, c.GetConf())
}

func TestRegister(t *testing.T) {
	Register()
	c, err := sqldb.New(DBType, &sqldb.Conf{Type: DBType, Host: "h", DB: "d"})
	require.NoError(t, err)
	assert.IsType(t, &Client{}, c)
}

func TestIsDuplicateEntry(t *testing.T) {
	dup := &lowimpl.MySQLError{Number: 1062, Message: "Duplicate entry 'a' for key 'PRIMARY'"}
	wrapped := sqldb.WrapDriverError("execute", "INSERT", fmt.Errorf("insert: %w", dup))
	assert.True(t, IsDuplicateEntry(wrapped))

	n, ok := ErrorNumber(wrapped)
	assert.True(t, ok)
	assert.Equal(t, uint16(1062), n)

	assert.False(t, IsDuplicateEntry(&lowimpl.MySQLError{Number: 1146}))
	assert.False(t, IsDuplicateEntry(fmt.Errorf("plain")))
}
