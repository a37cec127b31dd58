// Package database handles database connections and schema inspection.
//
// It wraps GORM to open the store backing the inventory: a local SQLite file
// by default (pure Go driver "sqlite" or cgo driver "sqlite3"), or a MySQL or
// PostgreSQL server for a shared workshop database.
//
// # Connect
//
// Connect opens and pings the database. SQLite connections are limited to a
// single open connection, which keeps in-memory databases coherent and makes
// every logical operation a single writer.
//
// # Schema Inspection
//
// GetTableColumns lists the columns of an existing table so the store can
// check that a database created by an older scheme still carries every
// declared column.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    return err
//	}
//
//	columns, err := database.GetTableColumns(db, "bom")
package database
