//go:build !cgo

package sessionstore

import (
	_ "modernc.org/sqlite"
)

// sqliteDriver falls back to the pure-Go driver without cgo.
const sqliteDriver = "sqlite"
