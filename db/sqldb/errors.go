package sqldb

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrNoRows        = errors.New("sqldb: no rows in result set")
	ErrNotSupported  = errors.New("sqldb: operation not supported")
	ErrNotConnected  = errors.New("sqldb: not connected")
	ErrNoStatement   = errors.New("sqldb: no prepared statement")
	ErrNoTransaction = errors.New("sqldb: no active transaction")
	ErrTxActive      = errors.New("sqldb: transaction already active")
	ErrUnknownParam  = errors.New("sqldb: parameter was not defined")
	ErrUnboundParam  = errors.New("sqldb: parameter was not bound")
)

// DriverError wraps any failure raised by the underlying database driver
// (connection failure, malformed SQL, constraint violation, binding, tx).
type DriverError struct {
	Op    string // connect, prepare, bind, execute, fetch, begin, commit, rollback
	Query string // SQL as written by the caller, if a statement was involved
	Err   error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// Message is the driver's own error text
func (e *DriverError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// WrapDriverError returns nil for a nil err and never double-wraps
func WrapDriverError(op, query string, err error) error {
	if err == nil {
		return nil
	}
	var de *DriverError
	if errors.As(err, &de) {
		return err
	}
	return &DriverError{Op: op, Query: query, Err: err}
}

var regexQuoted = regexp.MustCompile(`'([^']*)'`)

// SplitQuoted splits msg around its first single-quoted fragment.
// quoted is returned without the surrounding quotes.
// ok is false (and before holds the whole msg) when there is no such fragment.
func SplitQuoted(msg string) (before, quoted, after string, ok bool) {
	loc := regexQuoted.FindStringSubmatchIndex(msg)
	if loc == nil {
		return msg, "", "", false
	}
	return msg[:loc[0]], msg[loc[2]:loc[3]], msg[loc[1]:], true
}
