// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"strings"
	"time"
)

// IsSQLiteConflictError checks if the error is a SQLITE_BUSY or
// "database is locked" error. Both are SQLite concurrency errors that
// warrant retry logic.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// RetrySQLite runs fn up to attempts times, backing off exponentially from
// baseDelay, as long as the failure is a SQLite concurrency error. The last
// error is returned when all attempts fail; non-conflict errors return
// immediately.
func RetrySQLite(attempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsSQLiteConflictError(err) || i == attempts-1 {
			return err
		}
		time.Sleep(baseDelay * time.Duration(1<<i))
	}
	return err
}
