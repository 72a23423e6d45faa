// Package report defines the vendor-neutral core of the extraction pipeline:
// the report catalog, field-name normalization, row enrichment, numeric
// coercion, and schema reconciliation.
//
// Types in this package are pure values with no I/O. Nothing here imports a
// vendor SDK, a database driver, or net/http, which is what lets the pipeline
// be exercised end to end with in-memory fakes.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Client, no context.Context in struct fields
//   - The catalog is immutable after process start
package report
