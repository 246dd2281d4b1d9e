// Command gw-sql runs one statement against a configured SQL database.
//
//	gw-sql --root . --db main --query 'SELECT name FROM users WHERE id = :id' --param id:int=5
//	gw-sql --db main --query 'UPDATE users SET name = :name WHERE id = :id' --param name=Alice --param id:int=5 --exec
//
// Rows are printed as JSON. On a database error the HTML diagnostic is written to stdout
// and the exit code is 2.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/zeptools/gw-dbclient/conf"
	"github.com/zeptools/gw-dbclient/db/sqldb"
	"github.com/zeptools/gw-dbclient/dbclient"
	"github.com/zeptools/gw-dbclient/dbg"
)

const (
	exitOK    = 0
	exitUsage = 1
)

type options struct {
	root    string
	dbName  string
	query   string
	stored  string
	params  []string
	exec    bool
	debug   bool
	noColor bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, color.RedString("error:"), err)
		return exitUsage
	}
	if opts.noColor {
		color.NoColor = true
	}

	confs, err := conf.LoadSQLDBConfs(opts.root)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("error:"), err)
		return exitUsage
	}
	dbConf, ok := confs[opts.dbName]
	if !ok {
		fmt.Fprintf(stderr, "%s unknown database %q\n", color.RedString("error:"), opts.dbName)
		return exitUsage
	}
	if opts.debug {
		dbConf.Debug = true
	}
	params, err := parseParams(opts.params)
	if err != nil {
		fmt.Fprintln(stderr, color.RedString("error:"), err)
		return exitUsage
	}

	if _, err = os.Stat(filepath.Join(opts.root, "sql")); err == nil {
		sqldb.RegisterGroup(os.DirFS(opts.root), "app")
	}
	databases := &conf.Databases{
		AppRoot: opts.root,
		Confs:   map[string]*sqldb.Conf{opts.dbName: dbConf},
	}
	if err = databases.PrepareSQLDatabases(ctx, nil); err != nil {
		_ = dbclient.Report(stdout, err, dbConf.Debug)
		return dbclient.ExitDatabase
	}
	defer databases.ResourceCleanUp()
	database, _ := databases.Get(opts.dbName)

	if err = runStatement(ctx, database, opts, params, stdout, stderr); err != nil {
		_ = dbclient.Report(stdout, err, dbConf.Debug)
		return dbclient.ExitDatabase
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("gw-sql", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.root, "root", ".", "app root holding config/.sql-databases.json and an optional sql/ dir")
	fs.StringVar(&opts.dbName, "db", "main", "database name in the config")
	fs.StringVarP(&opts.query, "query", "q", "", "statement with :name placeholders")
	fs.StringVar(&opts.stored, "stored", "", "stored statement key, e.g. app.find_user")
	fs.StringArrayVarP(&opts.params, "param", "p", nil, "bind name[:kind]=value, kind is int, bool, null or string")
	fs.BoolVar(&opts.exec, "exec", false, "execute and report affected rows instead of fetching")
	fs.BoolVar(&opts.debug, "debug", false, "verbose error reports and statement dump")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if (opts.query == "") == (opts.stored == "") {
		return nil, errors.New("exactly one of --query or --stored is required")
	}
	return opts, nil
}

func parseParams(raw []string) ([]sqldb.Param, error) {
	params := make([]sqldb.Param, 0, len(raw))
	for _, r := range raw {
		p, err := parseParam(r)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}

// parseParam reads name[:kind]=value
func parseParam(raw string) (sqldb.Param, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return sqldb.Param{}, fmt.Errorf("param %q: want name[:kind]=value", raw)
	}
	name, kindName, typed := strings.Cut(strings.TrimPrefix(key, ":"), ":")
	if name == "" {
		return sqldb.Param{}, fmt.Errorf("param %q: empty name", raw)
	}
	if !typed {
		return sqldb.NewTypedParam(name, value, sqldb.KindString)
	}
	kind, err := parseKind(kindName)
	if err != nil {
		return sqldb.Param{}, fmt.Errorf("param %q: %w", raw, err)
	}
	return sqldb.NewTypedParam(name, value, kind)
}

func parseKind(s string) (sqldb.Kind, error) {
	switch strings.ToLower(s) {
	case "int", "integer":
		return sqldb.KindInt, nil
	case "bool", "boolean":
		return sqldb.KindBool, nil
	case "null":
		return sqldb.KindNull, nil
	case "str", "string":
		return sqldb.KindString, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

func runStatement(ctx context.Context, database *dbclient.Database, opts *options, params []sqldb.Param, stdout, stderr io.Writer) error {
	var err error
	if opts.stored != "" {
		err = database.PrepareStored(ctx, opts.stored)
	} else {
		err = database.Prepare(ctx, opts.query)
	}
	if err != nil {
		return err
	}
	for _, p := range params {
		if err = database.Bind(p); err != nil {
			return err
		}
	}

	if opts.exec {
		if _, err = database.Execute(ctx); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(stderr, "%d row(s) affected\n", database.RowCount())
		if id, idErr := database.LastInsertID(); idErr == nil && id != 0 {
			color.New(color.FgCyan).Fprintf(stderr, "last insert id: %d\n", id)
		}
		return nil
	}

	records, err := database.FetchAll(ctx)
	if err != nil {
		return err
	}
	packed := dbg.PackDebug(records, database.Conf.Debug, func() any { return database.DebugDump() })
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err = enc.Encode(packed); err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	color.New(color.Faint).Fprintf(stderr, "%d row(s)\n", database.RowCount())
	return nil
}
