// Package importer turns supplier spreadsheets into canonical rows.
//
// An import runs these stages:
//
//  1. ReadFile parses the CSV/TSV export into raw string cells.
//  2. Align renames headers through the supplier Format, coerces types,
//     cleans text and attaches provenance (dir, file_name, file_format,
//     import_date).
//  3. ScaleQuantity applies the operator multiplier, asking when it is "ask".
//  4. ValidateAndHash drops rows lacking required values, reports rows lacking
//     optional ones and computes the device identity hash.
//  5. The devices referenced by the rows go through the attribute
//     Reconciler, then the rows are written under the canonical identities.
//
// Stage 5 runs in a single store transaction. With Overwrite the rows
// previously imported from the same file are replaced; otherwise quantities
// add up.
package importer
