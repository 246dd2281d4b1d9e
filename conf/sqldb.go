package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zeptools/gw-dbclient/db/sqldb"
	"gopkg.in/yaml.v3"
)

const (
	SQLDBConfJSON = ".sql-databases.json"
	SQLDBConfYAML = ".sql-databases.yaml"

	EnvPrefix = "GW_DB_"
	EnvDebug  = EnvPrefix + "DEBUG"
)

// LoadSQLDBConfs reads <appRoot>/config/.sql-databases.json, or the .yaml variant,
// a map of database name to sqldb.Conf, then applies environment overrides.
func LoadSQLDBConfs(appRoot string) (map[string]*sqldb.Conf, error) {
	confs := make(map[string]*sqldb.Conf)
	dir := filepath.Join(appRoot, "config")

	confBytes, err := os.ReadFile(filepath.Join(dir, SQLDBConfJSON)) // ([]byte, error)
	switch {
	case err == nil:
		if err = json.Unmarshal(confBytes, &confs); err != nil {
			return nil, fmt.Errorf("%s: %w", SQLDBConfJSON, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		confBytes, err = os.ReadFile(filepath.Join(dir, SQLDBConfYAML))
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(confBytes, &confs); err != nil {
			return nil, fmt.Errorf("%s: %w", SQLDBConfYAML, err)
		}
	default:
		return nil, err
	}

	if err = ApplyEnv(confs, os.LookupEnv); err != nil {
		return nil, err
	}
	for name, c := range confs {
		if c == nil {
			return nil, fmt.Errorf("sql database %q: empty config", name)
		}
		if c.Type == "" {
			return nil, fmt.Errorf("sql database %q: type is required", name)
		}
	}
	log.Printf("[INFO] %d sql database confs loaded", len(confs))
	return confs, nil
}

// ApplyEnv overrides confs from the environment:
// GW_DB_DEBUG for every database, GW_DB_<NAME>_PW and GW_DB_<NAME>_DSN per database.
func ApplyEnv(confs map[string]*sqldb.Conf, lookup func(string) (string, bool)) error {
	var (
		debug    bool
		hasDebug bool
	)
	if v, ok := lookup(EnvDebug); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDebug, err)
		}
		debug, hasDebug = b, true
	}
	for name, c := range confs {
		if c == nil {
			continue
		}
		if hasDebug {
			c.Debug = debug
		}
		key := EnvPrefix + envName(name)
		if v, ok := lookup(key + "_PW"); ok {
			c.PW = v
		}
		if v, ok := lookup(key + "_DSN"); ok {
			c.DSN = v
		}
	}
	return nil
}

func envName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}
