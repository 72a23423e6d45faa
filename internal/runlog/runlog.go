// Package runlog records batch outcomes into a warehouse-side audit table.
// Everything here is best-effort: a run's result never depends on its own
// bookkeeping.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/ga4-loader/internal/warehouse"
)

// tableName is the audit table, created on demand next to the report tables.
const tableName = "ga4_load_runs"

// Run is one recorded batch execution.
type Run struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	TotalRows  int       `json:"total_rows"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Repo persists and lists runs. It shares the sink's database handle.
type Repo struct {
	db      *sql.DB
	dialect warehouse.Dialect
	dataset string
}

// NewRepo creates a run repository on an existing warehouse connection.
func NewRepo(db *sql.DB, dialect warehouse.Dialect, dataset string) *Repo {
	return &Repo{db: db, dialect: dialect, dataset: dataset}
}

func (r *Repo) table() string {
	if r.dataset == "" {
		return fmt.Sprintf("%q", tableName)
	}
	return fmt.Sprintf("%q.%q", r.dataset, tableName)
}

// EnsureTable creates the audit table if absent.
func (r *Repo) EnsureTable(ctx context.Context) error {
	var ts string
	switch r.dialect.Name() {
	case "postgres":
		ts = "TIMESTAMPTZ"
	default:
		ts = "TIMESTAMP_NTZ"
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		"id" %s NOT NULL,
		"property_id" %s,
		"start_date" %s,
		"end_date" %s,
		"total" %s,
		"successful" %s,
		"failed" %s,
		"total_rows" %s,
		"status" %s,
		"started_at" %s,
		"finished_at" %s)`,
		r.table(),
		r.strType(), r.strType(), r.strType(), r.strType(),
		r.intType(), r.intType(), r.intType(), r.intType(),
		r.strType(), ts, ts)
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("creating %s: %w", tableName, err)
	}
	return nil
}

func (r *Repo) strType() string {
	if r.dialect.Name() == "postgres" {
		return "TEXT"
	}
	return "STRING"
}

func (r *Repo) intType() string {
	if r.dialect.Name() == "postgres" {
		return "BIGINT"
	}
	return "INTEGER"
}

// Record inserts one run. The id is assigned when empty.
func (r *Repo) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	ph := make([]any, 11)
	stmt := fmt.Sprintf(`INSERT INTO %s
		("id", "property_id", "start_date", "end_date", "total", "successful",
		 "failed", "total_rows", "status", "started_at", "finished_at")
		VALUES (%s)`, r.table(), r.placeholders(len(ph)))

	_, err := r.db.ExecContext(ctx, stmt,
		run.ID, run.PropertyID, run.StartDate, run.EndDate,
		run.Total, run.Successful, run.Failed, run.TotalRows,
		run.Status, run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *Repo) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	stmt := fmt.Sprintf(`SELECT "id", "property_id", "start_date", "end_date",
		"total", "successful", "failed", "total_rows", "status",
		"started_at", "finished_at"
		FROM %s ORDER BY "started_at" DESC LIMIT %s`,
		r.table(), r.dialect.Placeholder(1))

	rows, err := r.db.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID, &run.PropertyID, &run.StartDate, &run.EndDate,
			&run.Total, &run.Successful, &run.Failed, &run.TotalRows,
			&run.Status, &run.StartedAt, &run.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *Repo) placeholders(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += r.dialect.Placeholder(i)
	}
	return out
}
