package dbclient

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/gw-dbclient/db/sqldb"
	"github.com/zeptools/gw-dbclient/db/sqldb/impls/sqlite"
)

// newTestDB connects an in-memory sqlite database with a users table of three rows
func newTestDB(t *testing.T) *Database {
	t.Helper()
	sqlite.Register()
	d := New(&sqldb.Conf{Type: sqlite.DBType, DB: ":memory:"})
	d.Metrics = NewMetrics()
	require.NoError(t, d.Connect(context.Background()))
	t.Cleanup(func() { _ = d.Close() })

	exec(t, d, `CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, active INTEGER NOT NULL DEFAULT 1)`)
	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, d.Prepare(context.Background(), `INSERT INTO users (name) VALUES (:name)`))
		require.NoError(t, d.BindValue(":name", name))
		exec(t, d, "")
	}
	return d
}

// exec prepares query unless empty, then executes the current statement
func exec(t *testing.T, d *Database, query string) {
	t.Helper()
	if query != "" {
		require.NoError(t, d.Prepare(context.Background(), query))
	}
	ok, err := d.Execute(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func countUsers(t *testing.T, d *Database) int64 {
	t.Helper()
	require.NoError(t, d.Prepare(context.Background(), `SELECT COUNT(*) AS n FROM users`))
	record, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	return record["n"].(int64)
}

func queryCalls(d *Database) float64 {
	return testutil.ToFloat64(d.Metrics.Calls.WithLabelValues("query"))
}

func TestDatabase_ConnectClose(t *testing.T) {
	sqlite.Register()
	d := New(&sqldb.Conf{Type: sqlite.DBType, DB: ":memory:"})
	assert.Equal(t, Disconnected, d.State())

	require.NoError(t, d.Connect(context.Background()))
	assert.Equal(t, Connected, d.State())
	assert.NotNil(t, d.Client())

	require.NoError(t, d.Close())
	assert.Equal(t, Disconnected, d.State())
	assert.Nil(t, d.Client())
	assert.NoError(t, d.Close())
}

func TestDatabase_ConnectFailure(t *testing.T) {
	sqlite.Register()
	d := New(&sqldb.Conf{Type: sqlite.DBType, DB: filepath.Join(t.TempDir(), "missing", "app.db")})
	err := d.Connect(context.Background())
	require.Error(t, err)
	var de *sqldb.DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "connect", de.Op)
	assert.Equal(t, Disconnected, d.State())

	d = New(&sqldb.Conf{Type: "oracle"})
	assert.Error(t, d.Connect(context.Background()))
	assert.Equal(t, Disconnected, d.State())

	assert.Error(t, New(nil).Connect(context.Background()))
}

func TestDatabase_ConnectSetsStateBeforeOpen(t *testing.T) {
	var during State
	d := New(&sqldb.Conf{Type: "probe"})
	d.Factory = func(conf *sqldb.Conf) (sqldb.Client, error) {
		during = d.State()
		return nil, errors.New("unreachable")
	}
	require.Error(t, d.Connect(context.Background()))
	assert.Equal(t, Connected, during)
	assert.Equal(t, Disconnected, d.State())
}

func TestDatabase_BindValueInfersKind(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT :i AS i, :b AS b, :n AS n, :s AS s`))
	require.NoError(t, d.BindValue("i", 5))
	require.NoError(t, d.BindValue("b", true))
	require.NoError(t, d.BindValue("n", nil))
	require.NoError(t, d.BindValue("s", "  padded\n"))

	kinds := map[string]sqldb.Kind{}
	for name, p := range d.stmt.params {
		kinds[name] = p.Kind
	}
	assert.Equal(t, map[string]sqldb.Kind{
		"i": sqldb.KindInt,
		"b": sqldb.KindBool,
		"n": sqldb.KindNull,
		"s": sqldb.KindString,
	}, kinds)

	record, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(5), record["i"])
	assert.Nil(t, record["n"])
	assert.Equal(t, "padded", record["s"])
}

func TestDatabase_FetchExecutesOnce(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users WHERE id >= :min ORDER BY id`))
	require.NoError(t, d.BindValue(":min", 1))
	before := queryCalls(d)

	record, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sqldb.Record{"name": "alice"}, record)
	assert.Equal(t, before+1, queryCalls(d))

	record, found, err = d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob", record["name"])
	assert.Equal(t, before+1, queryCalls(d), "the open cursor is reused")

	_, _, err = d.Fetch(context.Background())
	require.NoError(t, err)
	_, found, err = d.Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.EqualValues(t, 3, d.RowCount())

	record, found, err = d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", record["name"], "an exhausted cursor executes again")
	assert.Equal(t, before+2, queryCalls(d))
}

func TestDatabase_FetchAllExecutesEachTime(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `INSERT INTO users (name) VALUES (:name) RETURNING id`))
	require.NoError(t, d.BindValue("name", "dave"))
	before := queryCalls(d)

	first, err := d.FetchAll(context.Background())
	require.NoError(t, err)
	second, err := d.FetchAll(context.Background())
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0]["id"], second[0]["id"])
	assert.Equal(t, before+2, queryCalls(d))
	assert.EqualValues(t, 5, countUsers(t, d))
}

func TestDatabase_FetchAllDrainsOpenCursor(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users ORDER BY id`))
	_, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)

	rest, err := d.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []sqldb.Record{{"name": "bob"}, {"name": "carol"}}, rest)
	assert.EqualValues(t, 3, d.RowCount())
}

func TestDatabase_FetchAllEmpty(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users WHERE id = :id`))
	require.NoError(t, d.BindValue("id", 99))
	records, err := d.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestDatabase_RowCountAfterUpdate(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `UPDATE users SET active = :active WHERE id <= :id`))
	require.NoError(t, d.BindValue("active", 0))
	require.NoError(t, d.BindValue("id", 2))
	exec(t, d, "")
	assert.EqualValues(t, 2, d.RowCount())
}

func TestDatabase_LastInsertID(t *testing.T) {
	d := newTestDB(t)
	id, err := d.LastInsertID()
	require.NoError(t, err)
	assert.EqualValues(t, 3, id)

	require.NoError(t, d.Prepare(context.Background(), `INSERT INTO users (name) VALUES (:name)`))
	require.NoError(t, d.BindValue("name", "erin"))
	exec(t, d, "")
	id, err = d.LastInsertID()
	require.NoError(t, err)
	assert.EqualValues(t, 4, id)
}

func TestDatabase_SelectByID(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users WHERE id = :id`))

	require.NoError(t, d.BindValue(":id", 2))
	record, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sqldb.Record{"name": "bob"}, record)

	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users WHERE id = :id`))
	require.NoError(t, d.BindValue(":id", 5))
	record, found, err = d.Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, record)
}

func TestDatabase_UpdateByID(t *testing.T) {
	d := newTestDB(t)
	tests := []struct {
		id   int
		want int64
	}{
		{id: 1, want: 1},
		{id: 5, want: 0},
	}
	for _, tt := range tests {
		require.NoError(t, d.Prepare(context.Background(), `UPDATE users SET name = :val WHERE id = :id`))
		require.NoError(t, d.BindValue(":val", "Alice"))
		require.NoError(t, d.BindValue(":id", tt.id))
		ok, err := d.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, tt.want, d.RowCount(), "id %d", tt.id)
	}
}

func TestDatabase_BindTyped(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users WHERE id = :id`))
	require.NoError(t, d.BindTyped("id", " 3 ", sqldb.KindInt))
	record, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "carol", record["name"])

	err = d.BindTyped("id", "three", sqldb.KindInt)
	var de *sqldb.DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "bind", de.Op)
}

func TestDatabase_Errors(t *testing.T) {
	sqlite.Register()
	d := New(&sqldb.Conf{Type: sqlite.DBType, DB: ":memory:"})
	ctx := context.Background()

	assert.ErrorIs(t, d.Prepare(ctx, "SELECT 1"), sqldb.ErrNotConnected)
	_, err := d.Execute(ctx)
	assert.ErrorIs(t, err, sqldb.ErrNotConnected)
	_, err = d.BeginTransaction(ctx)
	assert.ErrorIs(t, err, sqldb.ErrNotConnected)

	require.NoError(t, d.Connect(ctx))
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Execute(ctx)
	assert.ErrorIs(t, err, sqldb.ErrNoStatement)
	_, _, err = d.Fetch(ctx)
	assert.ErrorIs(t, err, sqldb.ErrNoStatement)
	assert.ErrorIs(t, d.BindValue("id", 1), sqldb.ErrNoStatement)
	_, err = d.LastInsertID()
	assert.ErrorIs(t, err, sqldb.ErrNoStatement)

	err = d.Prepare(ctx, "SELECT * FROM nope")
	var de *sqldb.DriverError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "prepare", de.Op)
	assert.Equal(t, "SELECT * FROM nope", de.Query)

	require.NoError(t, d.Prepare(ctx, "SELECT :a AS a, :b AS b"))
	assert.ErrorIs(t, d.BindValue("c", 1), sqldb.ErrUnknownParam)
	require.NoError(t, d.BindValue("a", 1))
	_, err = d.Execute(ctx)
	assert.ErrorIs(t, err, sqldb.ErrUnboundParam)
	_, err = d.FetchAll(ctx)
	assert.ErrorIs(t, err, sqldb.ErrUnboundParam)

	_, err = d.CommitTransaction(ctx)
	assert.ErrorIs(t, err, sqldb.ErrNoTransaction)
	_, err = d.RollBackTransaction(ctx)
	assert.ErrorIs(t, err, sqldb.ErrNoTransaction)
}

func TestDatabase_TransactionRollback(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	// prepared and bound before the transaction starts
	require.NoError(t, d.Prepare(ctx, `INSERT INTO users (name) VALUES (:name)`))
	require.NoError(t, d.BindValue("name", "frank"))

	ok, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, d.InTransaction())

	_, err = d.BeginTransaction(ctx)
	assert.ErrorIs(t, err, sqldb.ErrTxActive)

	exec(t, d, "")
	ok, err = d.RollBackTransaction(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, d.InTransaction())

	// the statement survives the transaction with its bindings
	exec(t, d, "")
	assert.EqualValues(t, 4, countUsers(t, d))
}

func TestDatabase_TransactionCommit(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	ok, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, d.Prepare(ctx, `DELETE FROM users WHERE id = :id`))
	require.NoError(t, d.BindValue("id", 1))
	exec(t, d, "")
	assert.EqualValues(t, 2, countUsers(t, d))

	ok, err = d.CommitTransaction(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, countUsers(t, d))
}

func TestDatabase_CloseRollsBackTransaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	sqlite.Register()
	conf := &sqldb.Conf{Type: sqlite.DBType, DB: path}
	ctx := context.Background()

	d := New(conf)
	require.NoError(t, d.Connect(ctx))
	exec(t, d, `CREATE TABLE IF NOT EXISTS users (id INTEGER PRIMARY KEY, name TEXT)`)
	_, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	exec(t, d, `INSERT INTO users (name) VALUES ('ghost')`)
	require.NoError(t, d.Close())

	d = New(conf)
	require.NoError(t, d.Connect(ctx))
	defer d.Close()
	assert.EqualValues(t, 0, countUsers(t, d))
}

func TestDatabase_PrepareStored(t *testing.T) {
	d := newTestDB(t)
	assert.Error(t, d.PrepareStored(context.Background(), "users.count"))

	d.RawStore = sqldb.NewRawStore()
	d.RawStore.Set("users.count", `SELECT COUNT(*) AS n FROM users WHERE active = :active`)
	require.NoError(t, d.PrepareStored(context.Background(), "users.count"))
	require.NoError(t, d.BindValue("active", true))
	record, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), record["n"])

	assert.Error(t, d.PrepareStored(context.Background(), "users.missing"))
}

func TestDatabase_DebugDump(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users WHERE id = :id AND name <> :name`))
	require.NoError(t, d.BindValue("id", 5))

	dump := d.DebugDump()
	assert.Contains(t, dump, "SQL: [55] SELECT name FROM users WHERE id = :id AND name <> :name\n")
	assert.Contains(t, dump, "Sent SQL: [49] SELECT name FROM users WHERE id = ? AND name <> ?\n")
	assert.Contains(t, dump, "Params:  2\n")
	assert.Contains(t, dump, "Key: Name: [3] :id\nparamno=0\nbound=1\nparam_type=Integer\nvalue=5\n")
	assert.Contains(t, dump, "Key: Name: [5] :name\nparamno=1\nbound=0\n")

	require.NoError(t, d.Close())
	assert.Equal(t, "no prepared statement\n", d.DebugDump())
}

func TestMetrics(t *testing.T) {
	d := newTestDB(t)
	reg := prometheus.NewRegistry()
	require.NoError(t, d.Metrics.Register(reg))

	execs := testutil.ToFloat64(d.Metrics.Calls.WithLabelValues("execute"))
	assert.EqualValues(t, 4, execs)

	require.NoError(t, d.Prepare(context.Background(), `INSERT INTO users (id, name) VALUES (:id, 'dup')`))
	require.NoError(t, d.BindValue("id", 1))
	_, err := d.Execute(context.Background())
	require.Error(t, err)
	assert.Equal(t, execs+1, testutil.ToFloat64(d.Metrics.Calls.WithLabelValues("execute")))
	assert.EqualValues(t, 1, testutil.ToFloat64(d.Metrics.Errors.WithLabelValues("execute")))
	assert.Positive(t, testutil.CollectAndCount(d.Metrics.Duration))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.count("execute", nil) })
}

func TestDatabase_RowCountAfterCommit(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	_, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	exec(t, d, `UPDATE users SET active = 0`)
	require.EqualValues(t, 3, d.RowCount())

	ok, err := d.CommitTransaction(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 3, d.RowCount())
}

func TestDatabase_RowCountAfterRollBack(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	_, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Prepare(ctx, `UPDATE users SET active = 0 WHERE id <= :id`))
	require.NoError(t, d.BindValue("id", 2))
	exec(t, d, "")

	ok, err := d.RollBackTransaction(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, d.RowCount())
}

func TestDatabase_RowCountAcrossBegin(t *testing.T) {
	d := newTestDB(t)
	exec(t, d, `UPDATE users SET active = 0`)

	_, err := d.BeginTransaction(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, d.RowCount())
	_, err = d.RollBackTransaction(context.Background())
	require.NoError(t, err)
}

func TestDatabase_LastInsertIDAcrossTransaction(t *testing.T) {
	tests := []struct {
		name string
		end  func(*Database, context.Context) (bool, error)
	}{
		{name: "commit", end: (*Database).CommitTransaction},
		{name: "rollback", end: (*Database).RollBackTransaction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDB(t)
			ctx := context.Background()

			_, err := d.BeginTransaction(ctx)
			require.NoError(t, err)
			require.NoError(t, d.Prepare(ctx, `INSERT INTO users (name) VALUES (:name)`))
			require.NoError(t, d.BindValue("name", "gina"))
			exec(t, d, "")

			ok, err := tt.end(d, ctx)
			require.NoError(t, err)
			require.True(t, ok)
			id, err := d.LastInsertID()
			require.NoError(t, err)
			assert.EqualValues(t, 4, id)
			assert.EqualValues(t, 1, d.RowCount())
		})
	}
}

func TestDatabase_BindColonPrefixedParam(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, d.Prepare(context.Background(), `SELECT name FROM users WHERE id = :id`))
	p, err := sqldb.NewTypedParam("id", 2, sqldb.KindInt)
	require.NoError(t, err)
	p.Name = ":id"
	require.NoError(t, d.Bind(p))

	record, found, err := d.Fetch(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob", record["name"])

	assert.ErrorIs(t, d.Bind(sqldb.Param{Name: ":nope", Kind: sqldb.KindNull}), sqldb.ErrUnknownParam)
}

func TestDatabase_BeginClosesFetchCursor(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, d.Prepare(ctx, `SELECT name FROM users ORDER BY id`))
	record, found, err := d.Fetch(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "alice", record["name"])

	_, err = d.BeginTransaction(ctx)
	require.NoError(t, err)
	record, found, err = d.Fetch(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", record["name"], "the statement executes again inside the transaction")

	_, err = d.CommitTransaction(ctx)
	require.NoError(t, err)
}
