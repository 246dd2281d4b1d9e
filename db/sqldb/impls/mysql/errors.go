package mysql

import (
	"errors"

	lowimpl "github.com/go-sql-driver/mysql"
)

// ER_DUP_ENTRY
const ErrNumDuplicateEntry uint16 = 1062

// ErrorNumber returns the MySQL server error number wrapped in err, if any
func ErrorNumber(err error) (uint16, bool) {
	var myErr *lowimpl.MySQLError
	if !errors.As(err, &myErr) {
		return 0, false
	}
	return myErr.Number, true
}

func IsDuplicateEntry(err error) bool {
	n, ok := ErrorNumber(err)
	return ok && n == ErrNumDuplicateEntry
}
