package dbclient

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zeptools/gw-dbclient/db/sqldb"
)

type statement struct {
	query    *sqldb.NamedQuery
	prepared sqldb.PreparedStmt
	params   map[string]sqldb.Param

	rows     sqldb.Rows // open cursor of the last query, nil when drained
	columns  []string
	rowCount int64
}

func (s *statement) closeRows() {
	if s.rows == nil {
		return
	}
	if err := s.rows.Close(); err != nil {
		log.Printf("[WARN] rows.Close() failed: %v", err)
	}
	s.rows = nil
	s.columns = nil
}

func (d *Database) discardStatement() {
	if d.stmt == nil {
		return
	}
	d.stmt.closeRows()
	if err := d.stmt.prepared.Close(); err != nil {
		log.Printf("[WARN] stmt.Close() failed: %v", err)
	}
	d.stmt = nil
}

func (d *Database) requireStatement() (*statement, error) {
	if err := d.requireConnected(); err != nil {
		return nil, err
	}
	if d.stmt == nil {
		return nil, sqldb.ErrNoStatement
	}
	return d.stmt, nil
}

// Prepare compiles query, written with `:name` placeholders, on the server.
// Any previous statement, its bindings and its cursor are discarded.
func (d *Database) Prepare(ctx context.Context, query string) error {
	if err := d.requireConnected(); err != nil {
		return err
	}
	d.discardStatement()
	stmt, err := d.prepare(ctx, query)
	if err != nil {
		return err
	}
	d.stmt = stmt
	return nil
}

// PrepareStored prepares a statement of the RawStore by its "group.name" key
func (d *Database) PrepareStored(ctx context.Context, key string) error {
	if d.RawStore == nil {
		return fmt.Errorf("no raw sql store")
	}
	query, ok := d.RawStore.Get(key)
	if !ok {
		return fmt.Errorf("stored statement %q not found", key)
	}
	return d.Prepare(ctx, query)
}

func (d *Database) prepare(ctx context.Context, query string) (*statement, error) {
	nq, err := sqldb.ParseNamed(query, d.Conf.Type)
	if err != nil {
		return nil, sqldb.WrapDriverError("prepare", query, err)
	}
	prepared, err := d.handle().Prepare(ctx, nq.SQL)
	d.Metrics.count("prepare", err)
	if err != nil {
		return nil, sqldb.WrapDriverError("prepare", query, err)
	}
	return &statement{
		query:    nq,
		prepared: prepared,
		params:   make(map[string]sqldb.Param, len(nq.Names)),
	}, nil
}

// Bind binds an already typed param to its placeholder (":id" or "id")
func (d *Database) Bind(p sqldb.Param) error {
	stmt, err := d.requireStatement()
	if err != nil {
		return err
	}
	p.Name = sqldb.ParamName(p.Name)
	if !stmt.query.Has(p.Name) {
		return sqldb.WrapDriverError("bind", stmt.query.Raw, fmt.Errorf("%w: :%s", sqldb.ErrUnknownParam, p.Name))
	}
	stmt.params[p.Name] = p
	return nil
}

// BindValue binds value to the placeholder name (":id" or "id").
// The kind is inferred: integers, bool, nil, anything else is bound as a trimmed string.
func (d *Database) BindValue(name string, value any) error {
	return d.BindTyped(name, value, sqldb.InferKind(value))
}

// BindTyped binds value coerced to kind
func (d *Database) BindTyped(name string, value any, kind sqldb.Kind) error {
	stmt, err := d.requireStatement()
	if err != nil {
		return err
	}
	p, err := sqldb.NewTypedParam(name, value, kind)
	if err != nil {
		return sqldb.WrapDriverError("bind", stmt.query.Raw, err)
	}
	return d.Bind(p)
}

// Execute runs the statement with its bound params.
// It reports true on success. Rows of a SELECT are discarded: use Fetch or FetchAll.
func (d *Database) Execute(ctx context.Context) (bool, error) {
	stmt, err := d.requireStatement()
	if err != nil {
		return false, err
	}
	stmt.closeRows()
	args, err := stmt.query.Args(stmt.params)
	if err != nil {
		return false, sqldb.WrapDriverError("execute", stmt.query.Raw, err)
	}
	start := time.Now()
	result, err := stmt.prepared.Exec(ctx, args...)
	d.Metrics.observe("execute", start, err)
	if err != nil {
		return false, sqldb.WrapDriverError("execute", stmt.query.Raw, err)
	}
	d.lastResult = result
	stmt.rowCount, err = result.RowsAffected()
	if err != nil {
		stmt.rowCount = 0
	}
	return true, nil
}

// query executes the statement and opens a cursor
func (d *Database) query(ctx context.Context, stmt *statement) error {
	args, err := stmt.query.Args(stmt.params)
	if err != nil {
		return sqldb.WrapDriverError("fetch", stmt.query.Raw, err)
	}
	start := time.Now()
	rows, err := stmt.prepared.Query(ctx, args...)
	d.Metrics.observe("query", start, err)
	if err != nil {
		return sqldb.WrapDriverError("fetch", stmt.query.Raw, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return sqldb.WrapDriverError("fetch", stmt.query.Raw, err)
	}
	stmt.rows = rows
	stmt.columns = columns
	stmt.rowCount = 0
	return nil
}

// Fetch returns the next row, executing the statement first when no cursor is open.
// found is false once the rows are exhausted; the next Fetch executes again.
// Beginning or ending a transaction closes the cursor as well.
func (d *Database) Fetch(ctx context.Context) (record sqldb.Record, found bool, err error) {
	stmt, err := d.requireStatement()
	if err != nil {
		return nil, false, err
	}
	if stmt.rows == nil {
		if err = d.query(ctx, stmt); err != nil {
			return nil, false, err
		}
	}
	record, found, err = sqldb.NextRecord(stmt.rows, stmt.columns)
	if err == nil && !found {
		err = stmt.rows.Err()
	}
	if err != nil || !found {
		stmt.closeRows()
		return nil, false, sqldb.WrapDriverError("fetch", stmt.query.Raw, err)
	}
	stmt.rowCount++
	return record, true, nil
}

// FetchAll returns the remaining rows of the open cursor,
// or executes the statement and returns all of its rows.
// Calling it twice executes the statement twice.
func (d *Database) FetchAll(ctx context.Context) ([]sqldb.Record, error) {
	stmt, err := d.requireStatement()
	if err != nil {
		return nil, err
	}
	if stmt.rows == nil {
		if err = d.query(ctx, stmt); err != nil {
			return nil, err
		}
	}
	defer stmt.closeRows()
	records, err := sqldb.CollectRecords(stmt.rows, stmt.columns)
	if err != nil {
		return nil, sqldb.WrapDriverError("fetch", stmt.query.Raw, err)
	}
	stmt.rowCount += int64(len(records))
	return records, nil
}

// RowCount is the number of rows affected by the last Execute,
// or the number of rows read through the last query. It never executes.
func (d *Database) RowCount() int64 {
	if d.stmt == nil {
		return 0
	}
	return d.stmt.rowCount
}

// LastInsertID is the id generated by the most recent Execute.
// For pgsql it must be read before the next statement is prepared.
func (d *Database) LastInsertID() (int64, error) {
	if err := d.requireConnected(); err != nil {
		return 0, err
	}
	if d.lastResult == nil {
		return 0, sqldb.ErrNoStatement
	}
	id, err := d.lastResult.LastInsertId()
	if err != nil {
		return 0, sqldb.WrapDriverError("last_insert_id", "", err)
	}
	return id, nil
}

// DebugDump describes the current statement: the SQL as written and as sent, and every placeholder.
func (d *Database) DebugDump() string {
	if d.stmt == nil {
		return "no prepared statement\n"
	}
	q := d.stmt.query
	var b strings.Builder
	fmt.Fprintf(&b, "SQL: [%d] %s\n", len(q.Raw), q.Raw)
	fmt.Fprintf(&b, "Sent SQL: [%d] %s\n", len(q.SQL), q.SQL)
	fmt.Fprintf(&b, "Params:  %d\n", len(q.Names))
	for i, name := range q.Names {
		fmt.Fprintf(&b, "Key: Name: [%d] :%s\n", len(name)+1, name)
		fmt.Fprintf(&b, "paramno=%d\n", i)
		p, bound := d.stmt.params[name]
		if !bound {
			b.WriteString("bound=0\n")
			continue
		}
		fmt.Fprintf(&b, "bound=1\nparam_type=%s\nvalue=%#v\n", p.Kind, p.Value)
	}
	return b.String()
}
