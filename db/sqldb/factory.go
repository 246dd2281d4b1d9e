package sqldb

import (
	"fmt"
	"sort"
)

// ClientFactory is a callback that constructs a Client from Conf.
// It is registered with RegisterFactory and called by sqldb.New.
type ClientFactory func(conf *Conf) (Client, error)

var registry = map[string]ClientFactory{}

func RegisterFactory(dbType string, factory ClientFactory) {
	registry[dbType] = factory
}

func New(dbType string, conf *Conf) (Client, error) {
	factory, ok := registry[dbType]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
	return factory(conf)
}

// RegisteredTypes lists the db types with a registered factory, sorted
func RegisteredTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
