package sqldb

import (
	"fmt"
)

var PlaceholderPrefixForDBType = map[string]byte{
	"mysql":  '?',
	"pgsql":  '$',
	"mssql":  '@',
	"oracle": ':',
	"sqlite": 0, // NOTE: sqlite supports all of them
}

func PlaceholderGF(baseChar byte) func(...int) string { // vararg for optional
	if baseChar == '?' || baseChar == 0 {
		return func(_ ...int) string {
			return "?"
		}
	}
	return func(index ...int) string {
		var i int
		if len(index) == 0 {
			i = 1
		} else {
			i = index[0]
		}
		return fmt.Sprintf("%c%d", baseChar, i)
	}
}

// anonymous reports whether every placeholder is a bare '?' for the prefix,
// so a name used twice needs two positional args
func anonymous(baseChar byte) bool {
	return baseChar == '?' || baseChar == 0
}
