package db

import (
	"strings"

	"github.com/osintlab/WDX/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed
// database. The cache store maps driver closed-connection errors onto this
// sentinel so a resolution racing a shutdown degrades to an unresolved
// property instead of reporting a fatal cache failure.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is
// closed. The string matching fallback is necessary because the underlying
// sql driver returns its own error types that we cannot wrap at the source.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "database is closed") ||
		strings.Contains(errMsg, "sql: database is closed")
}
