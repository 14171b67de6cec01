//go:build cgo

package sessionstore

import (
	_ "github.com/mattn/go-sqlite3"
)

// sqliteDriver selects the cgo driver when available.
const sqliteDriver = "sqlite3"
