package pipeline

import (
	"context"

	"github.com/ignite/ga4-loader/internal/report"
)

// Source fetches report rows from the vendor analytics API. Implementations
// return rows keyed by the vendor field names exactly as requested, with every
// value still in the vendor's string form; normalization and numeric coercion
// happen inside the pipeline.
type Source interface {
	RunReport(ctx context.Context, propertyID string, dimensions, metrics []string, start, end string) ([]report.Row, error)
}

// Sink is the warehouse the pipeline loads into. The pipeline only ever calls
// it in this order: EnsureDataset, EnsureTable, DeletePartition, InsertRows.
type Sink interface {
	// EnsureDataset creates the destination namespace if absent. Idempotent.
	EnsureDataset(ctx context.Context) error
	// EnsureTable creates the table for spec if absent. It must never alter
	// an existing table; schema drift surfaces later as insert errors.
	EnsureTable(ctx context.Context, spec report.TableSpec) error
	// DeletePartition removes every row whose partition column equals date.
	// A false return means the delete failed; callers log and proceed.
	DeletePartition(ctx context.Context, table, date string) bool
	// InsertRows appends rows to the named table, reporting a per-call result.
	InsertRows(ctx context.Context, table string, columns []report.ColumnSpec, rows []report.Row) report.LoadResult
}

// Archiver tees raw extracted rows to a landing zone before transformation.
// Optional; write failures never fail a run.
type Archiver interface {
	Store(ctx context.Context, propertyID, table, date string, rows []report.Row) error
}
