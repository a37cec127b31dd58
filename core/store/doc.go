// Package store is the persistence adapter of the inventory. It exposes
// generic get/put/remove operations over tables declared in a scheme and
// shapes every multi-table write as one database transaction.
//
// # Rows
//
// Rows are table.Row maps keyed by column name. Put ignores columns the
// target table does not declare, so a row carrying device and bom columns
// can be written to both tables unchanged.
//
// # Conflicts
//
// The first UNIQUE group of a table is its conflict key. Put looks up the
// stored row by that key and applies the policy: Replace, Add (sum named
// columns), Ignore or Fail.
//
// # Transactions
//
// Transaction hands the callback a Store bound to the transaction; every
// operation issued through it commits or rolls back together. Nested calls
// use savepoints. Code inside the callback must only use the store it was
// given.
package store
