package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"                  // postgres driver
	_ "github.com/snowflakedb/gosnowflake" // snowflake driver

	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/pkg/logger"
	"github.com/ignite/ga4-loader/internal/report"
)

// defaultChunkSize bounds the rows per INSERT statement.
const defaultChunkSize = 500

// Sink loads report rows into a SQL warehouse. It satisfies the pipeline's
// sink interface for both supported dialects.
type Sink struct {
	db      *sql.DB
	dialect Dialect
	dataset string
	chunk   int
}

// Open connects to the configured warehouse and returns a Sink.
func Open(cfg config.WarehouseConfig) (*Sink, error) {
	dialect, err := DialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	var dsn string
	switch dialect.Name() {
	case "snowflake":
		dsn = cfg.SnowflakeDSN()
	case "postgres":
		dsn = cfg.PostgresDSN
	}
	if dsn == "" || strings.HasPrefix(dsn, ":@") {
		return nil, fmt.Errorf("warehouse connection not configured for dialect %s", dialect.Name())
	}

	db, err := sql.Open(dialect.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dialect.Name(), err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewSink(db, dialect, cfg.Dataset, cfg.ChunkSize), nil
}

// NewSink wraps an existing database handle. Used by Open and by tests.
func NewSink(db *sql.DB, dialect Dialect, dataset string, chunkSize int) *Sink {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Sink{db: db, dialect: dialect, dataset: dataset, chunk: chunkSize}
}

// Dialect returns the sink's dialect name.
func (s *Sink) Dialect() string { return s.dialect.Name() }

// Dataset returns the destination schema name.
func (s *Sink) Dataset() string { return s.dataset }

// Close closes the database connection
func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (s *Sink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle for collaborators that share the
// connection (run history, advisory locks).
func (s *Sink) DB() *sql.DB { return s.db }

// EnsureDataset creates the destination schema if absent. Idempotent.
func (s *Sink) EnsureDataset(ctx context.Context) error {
	if s.dataset == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(s.dataset)); err != nil {
		return fmt.Errorf("creating schema %s: %w", s.dataset, err)
	}
	return nil
}

// TableExists checks for the table by name in information_schema.
func (s *Sink) TableExists(ctx context.Context, table string) (bool, error) {
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = %s",
		s.dialect.Placeholder(1))

	var count int
	if err := s.db.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return count > 0, nil
}

// EnsureTable creates the table for spec if absent. It never alters an
// existing table; drift surfaces as insert errors.
func (s *Sink) EnsureTable(ctx context.Context, spec report.TableSpec) error {
	exists, err := s.TableExists(ctx, spec.Name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, buildCreateTable(s.dialect, s.dataset, spec)); err != nil {
		return fmt.Errorf("creating table %s: %w", spec.Name, err)
	}
	for _, stmt := range s.dialect.PostCreate(s.dataset, spec) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("indexing table %s: %w", spec.Name, err)
		}
	}
	logger.Info("table created", "table", spec.Name, "dialect", s.dialect.Name(), "columns", len(spec.Columns))
	return nil
}

// InitTables ensures the dataset and one table per catalog spec.
func (s *Sink) InitTables(ctx context.Context, catalog *report.Catalog, prefix string) error {
	if err := s.EnsureDataset(ctx); err != nil {
		return err
	}
	for _, spec := range catalog.Specs() {
		if err := s.EnsureTable(ctx, report.TableFor(spec, prefix)); err != nil {
			return err
		}
	}
	return nil
}

// DeletePartition removes every row of the table's day partition. A false
// return means the delete failed; the caller logs and proceeds, accepting
// possible duplicates over an aborted load.
func (s *Sink) DeletePartition(ctx context.Context, table, date string) bool {
	res, err := s.db.ExecContext(ctx, buildDeletePartition(s.dialect, s.dataset, table), date)
	if err != nil {
		logger.Warn("partition delete failed", "table", table, "date", date, "error", err.Error())
		return false
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Info("partition cleared", "table", table, "date", date, "rows", n)
	}
	return true
}

// InsertRows appends rows in chunks. The result reports how many rows made
// it in; a mid-batch failure stops at the failed chunk.
func (s *Sink) InsertRows(ctx context.Context, table string, columns []report.ColumnSpec, rows []report.Row) report.LoadResult {
	if len(rows) == 0 {
		return report.LoadResult{
			Status:  report.StatusWarning,
			Message: "no rows to insert",
			Table:   table,
		}
	}

	inserted := 0
	for start := 0; start < len(rows); start += s.chunk {
		end := start + s.chunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			args = append(args, rowArgs(columns, row)...)
		}

		if _, err := s.db.ExecContext(ctx, buildInsert(s.dialect, s.dataset, table, columns, len(chunk)), args...); err != nil {
			return report.LoadResult{
				Status:       report.StatusError,
				Message:      fmt.Sprintf("insert into %s failed after %d rows: %v", table, inserted, err),
				Table:        table,
				RowsInserted: inserted,
			}
		}
		inserted += len(chunk)
	}

	return report.LoadResult{
		Status:       report.StatusSuccess,
		Message:      fmt.Sprintf("inserted %d rows", inserted),
		Table:        table,
		RowsInserted: inserted,
	}
}
