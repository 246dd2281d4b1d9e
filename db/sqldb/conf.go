package sqldb

import "time"

type Conf struct {
	Type string `json:"type" yaml:"type"` // mysql, pgsql, sqlite
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
	User string `json:"user" yaml:"user"`
	PW   string `json:"pw" yaml:"pw"`
	DB   string `json:"db" yaml:"db"`   // Database Name. File Path for sqlite
	TZ   string `json:"tz" yaml:"tz"`   // Connection Timezone
	DSN  string `json:"dsn" yaml:"dsn"` // To Overwrite Default DSN

	Debug      bool `json:"debug" yaml:"debug"`           // Verbose Error Reports
	Persistent bool `json:"persistent" yaml:"persistent"` // Keep one Connection alive and reuse it
	MaxConns   int  `json:"max_conns" yaml:"max_conns"`   // 0 = DefaultMaxConns
}

const (
	DefaultMaxConns        = 10
	DefaultConnMaxLifetime = 3 * time.Minute
)

// PoolLimits returns (max open conns, max idle conns, conn max lifetime) for the Conf.
// A Persistent Conf pins a single connection that never expires.
func (c *Conf) PoolLimits() (int, int, time.Duration) {
	if c.Persistent {
		return 1, 1, 0
	}
	maxConns := c.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	return maxConns, maxConns, DefaultConnMaxLifetime
}

// PortOr returns the configured Port or the given default
func (c *Conf) PortOr(def int) int {
	if c.Port == 0 {
		return def
	}
	return c.Port
}
