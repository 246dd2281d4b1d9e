package sqldb

import (
	"fmt"
	"io/fs"
	"log"
	"path"
	"strings"
)

// RawSQLStore keeps statements written with `:name` placeholders, keyed "group.name"
type RawSQLStore struct {
	stmts map[string]string
}

func NewRawStore() *RawSQLStore {
	return &RawSQLStore{stmts: make(map[string]string)}
}

func (s *RawSQLStore) Set(key string, rawStmt string) {
	s.stmts[key] = rawStmt
}

func (s *RawSQLStore) Get(key string) (string, bool) {
	stmt, exists := s.stmts[key]
	return stmt, exists
}

func (s *RawSQLStore) GetAll() map[string]string {
	return s.stmts
}

type StoreGroupedStmtKey struct {
	Group    string
	StmtName string
}

func (k StoreGroupedStmtKey) String() string {
	return k.Group + "." + k.StmtName
}

// GroupFS holds a `sql` directory, usually from an embed.FS
type GroupFS struct {
	Group string
	FS    fs.FS
}

var RawStoreRegistry []GroupFS

func RegisterGroup(fsys fs.FS, group string) {
	RawStoreRegistry = append(RawStoreRegistry, GroupFS{
		FS:    fsys,
		Group: group,
	})
}

// LoadRawStmtsToStore reads every registered group into store.
// A file named after the dbtype (e.g. users.pgsql) wins over the standard users.sql.
func LoadRawStmtsToStore(store *RawSQLStore, dbtype string, groups []GroupFS) error {
	groupCnt := 0
	stmtCnt := 0
	for _, groupFS := range groups {
		files, err := fs.ReadDir(groupFS.FS, "sql")
		if err != nil {
			return fmt.Errorf("failed to read `sql` dir of group %q. %w", groupFS.Group, err)
		}
		dialects := map[string]struct{}{}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			filename := f.Name()
			ext := path.Ext(filename)
			name := strings.TrimSuffix(filename, ext)
			ext = strings.TrimPrefix(ext, ".")
			if ext != dbtype && ext != "sql" {
				continue
			}
			data, err := fs.ReadFile(groupFS.FS, path.Join("sql", filename))
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", filename, err)
			}
			groupedStmtKey := StoreGroupedStmtKey{Group: groupFS.Group, StmtName: name}.String()

			switch ext {
			case dbtype:
				// exact matching file extension -> use it as-is for dialects
				if _, exists := store.Get(groupedStmtKey); !exists {
					stmtCnt++
				}
				store.Set(groupedStmtKey, string(data))
				dialects[groupedStmtKey] = struct{}{}
			case "sql":
				// Standard SQL. Dialect files of the same name override it
				if _, exists := dialects[groupedStmtKey]; !exists {
					if _, exists = store.Get(groupedStmtKey); !exists {
						stmtCnt++
					}
					store.Set(groupedStmtKey, string(data))
				}
			}
		}
		groupCnt++
	}
	log.Printf("[INFO][%s] %d sql raw stmts loaded for %d groups", dbtype, stmtCnt, groupCnt)
	return nil
}
