// Package stock moves parts between projects, on-hand stock and purchase lists.
//
// # Commit
//
// Commit migrates a project's BOM into stock. What was committed is kept in
// the commit ledger, so committing again only applies the difference between
// the current BOM and the ledger: an unchanged project commits as a no-op and
// a re-imported project converges to its latest quantities.
//
// # Use
//
// Use subtracts a project's parts, times the number of boards built, from
// stock. Entries reaching zero are removed. If any part falls short nothing
// changes and an apperr.InsufficientStockError lists the shortfalls.
//
// # Purchase
//
// Purchase runs four stages over the store:
//
//	CollectDemand    sum BOM quantities per device, times the multiplier
//	NetAgainstStock  subtract on-hand stock, drop covered devices
//	AssignShops      pick the cheapest live offer per device
//	Partition        group lines per shop (or into one list)
//
// and writes one CSV per group, optionally publishing it to object storage.
package stock
