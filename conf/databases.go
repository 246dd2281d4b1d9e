package conf

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/zeptools/gw-dbclient/db"
	"github.com/zeptools/gw-dbclient/db/sqldb"
	"github.com/zeptools/gw-dbclient/db/sqldb/impls/mysql"
	"github.com/zeptools/gw-dbclient/db/sqldb/impls/pgsql"
	"github.com/zeptools/gw-dbclient/db/sqldb/impls/sqlite"
	"github.com/zeptools/gw-dbclient/dbclient"
)

// Databases - the named SQL databases of an app
type Databases struct {
	AppRoot string
	Confs   map[string]*sqldb.Conf        // loadSQLDBConfs
	Clients map[string]*dbclient.Database // PrepareSQLDatabases
	Metrics *dbclient.Metrics             // optional, shared by all Clients

	rawStores map[string]*sqldb.RawSQLStore // by db type
}

// RegisterImpls registers the supported driver implementations with sqldb
func RegisterImpls() {
	mysql.Register()
	pgsql.Register()
	sqlite.Register()
}

// PrepareSQLDatabases loads confs, raw statements of the registered groups, and connects every database.
// ensureImports is run before the raw statements are loaded, so packages registering
// embedded groups with sqldb.RegisterGroup are initialized.
func (d *Databases) PrepareSQLDatabases(ctx context.Context, ensureImports func()) error {
	if d.Confs == nil {
		confs, err := LoadSQLDBConfs(d.AppRoot)
		if err != nil {
			return err
		}
		d.Confs = confs
	}
	RegisterImpls()

	if ensureImports != nil {
		ensureImports()
	}
	d.rawStores = make(map[string]*sqldb.RawSQLStore)
	for _, c := range d.Confs {
		if _, ok := d.rawStores[c.Type]; ok {
			continue
		}
		store := sqldb.NewRawStore()
		if err := sqldb.LoadRawStmtsToStore(store, c.Type, sqldb.RawStoreRegistry); err != nil {
			return err
		}
		d.rawStores[c.Type] = store
	}

	d.Clients = make(map[string]*dbclient.Database, len(d.Confs))
	for _, name := range d.Names() {
		c := d.Confs[name]
		database := &dbclient.Database{
			Conf:     c,
			RawStore: d.rawStores[c.Type],
			Metrics:  d.Metrics,
		}
		if err := database.Connect(ctx); err != nil {
			d.ResourceCleanUp()
			return fmt.Errorf("sql database %q: %w", name, err)
		}
		log.Printf("[INFO][%s] %q SQL DB client connected", c.Type, name)
		d.Clients[name] = database
	}
	return nil
}

// Names of the configured databases, sorted
func (d *Databases) Names() []string {
	names := make([]string, 0, len(d.Confs))
	for name := range d.Confs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Databases) Get(name string) (*dbclient.Database, bool) {
	database, ok := d.Clients[name]
	return database, ok
}

func (d *Databases) ResourceCleanUp() {
	log.Println("[INFO] SQL DB Resource Cleaning Up...")
	for name, database := range d.Clients {
		dbType := database.Conf.Type
		db.CloseClient(fmt.Sprintf("[%s] %s", dbType, name), database)
	}
	d.Clients = nil
	log.Println("[INFO] SQL DB Resource Cleanup Complete")
}
