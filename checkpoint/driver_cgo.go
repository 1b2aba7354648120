//go:build cgo

package checkpoint

import (
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"
