// Package scheme loads the declarative table scheme and resolves, per table,
// which columns an import must supply.
//
// # Format
//
// The scheme is a YAML document mapping table name to column name to a SQL
// type/constraint string. Four reserved keys carry relations:
//
//	bom:
//	  device_hash: VARCHAR(32) NOT NULL
//	  quantity: INTEGER NOT NULL
//	  FOREIGN:
//	    - device_hash: device.device_hash
//	  UNIQUE:
//	    - [device_hash, project]
//	  HASH_COLS: {}
//	  META: [file_name]
//
// Column order is preserved as written.
//
// # Resolution
//
// Resolve walks FOREIGN links transitively. A table's required columns are its
// NOT NULL columns plus every column of a UNIQUE group, merged with those of
// the tables it references. Hash, foreign-key and META columns are never
// supplied by an import and are excluded; hash columns are reported separately
// with their source columns.
package scheme
