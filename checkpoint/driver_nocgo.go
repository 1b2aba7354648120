//go:build !cgo

package checkpoint

// go-sqlite3 needs cgo.
const driverName = ""
