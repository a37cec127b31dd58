// Package utils provides loose conversion of cell values read back from the
// database, whose Go types vary by driver.
package utils
