package warehouse

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ga4-loader/internal/report"
)

func newMockSink(t *testing.T, dialect Dialect, chunk int) (*Sink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSink(db, dialect, "GA4_CAMPAIGN", chunk), mock
}

func sinkRow(id string, sessions int64) report.Row {
	r := report.NewRow(2)
	r.Set("id", id)
	r.Set("sessions", sessions)
	return r
}

var sinkCols = []report.ColumnSpec{
	{Name: "id", Type: report.TypeString, Required: true},
	{Name: "sessions", Type: report.TypeInteger},
}

func TestEnsureDataset(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "GA4_CAMPAIGN"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureDataset(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTableCreatesWhenMissing(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.tables").
		WithArgs("GA4_DIM_CAMPAIGN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureTable(context.Background(), testTableSpec()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTableSkipsWhenPresent(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.tables").
		WithArgs("GA4_DIM_CAMPAIGN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, s.EnsureTable(context.Background(), testTableSpec()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureTablePostgresCreatesIndex(t *testing.T) {
	s, mock := newMockSink(t, Postgres{}, 0)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.tables").
		WithArgs("GA4_DIM_CAMPAIGN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureTable(context.Background(), testTableSpec()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePartition(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "GA4_CAMPAIGN"."GA4_DIM_CAMPAIGN" WHERE "date" = ?`)).
		WithArgs("2024-01-15").
		WillReturnResult(sqlmock.NewResult(0, 42))

	assert.True(t, s.DeletePartition(context.Background(), "GA4_DIM_CAMPAIGN", "2024-01-15"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePartitionFailureReturnsFalse(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)

	mock.ExpectExec("DELETE FROM").
		WithArgs("2024-01-15").
		WillReturnError(errors.New("table locked"))

	// failure is reported, not raised; the caller inserts anyway
	assert.False(t, s.DeletePartition(context.Background(), "GA4_DIM_CAMPAIGN", "2024-01-15"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRows(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "GA4_CAMPAIGN"."GA4_DIM_CAMPAIGN" ("id", "sessions") VALUES (?, ?), (?, ?)`)).
		WithArgs("a", int64(1), "b", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	result := s.InsertRows(context.Background(), "GA4_DIM_CAMPAIGN", sinkCols,
		[]report.Row{sinkRow("a", 1), sinkRow("b", 2)})

	assert.Equal(t, report.StatusSuccess, result.Status)
	assert.Equal(t, 2, result.RowsInserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowsChunked(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 2)

	mock.ExpectExec("INSERT INTO").
		WithArgs("a", int64(1), "b", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO").
		WithArgs("c", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := s.InsertRows(context.Background(), "GA4_DIM_CAMPAIGN", sinkCols,
		[]report.Row{sinkRow("a", 1), sinkRow("b", 2), sinkRow("c", 3)})

	assert.Equal(t, report.StatusSuccess, result.Status)
	assert.Equal(t, 3, result.RowsInserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowsEmpty(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)

	result := s.InsertRows(context.Background(), "GA4_DIM_CAMPAIGN", sinkCols, nil)

	assert.Equal(t, report.StatusWarning, result.Status)
	assert.Equal(t, 0, result.RowsInserted)
	// no statement issued for an empty batch
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowsFailureMidBatch(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 1)

	mock.ExpectExec("INSERT INTO").
		WithArgs("a", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO").
		WithArgs("b", int64(2)).
		WillReturnError(errors.New("value too long"))

	result := s.InsertRows(context.Background(), "GA4_DIM_CAMPAIGN", sinkCols,
		[]report.Row{sinkRow("a", 1), sinkRow("b", 2), sinkRow("c", 3)})

	assert.Equal(t, report.StatusError, result.Status)
	assert.Equal(t, 1, result.RowsInserted)
	assert.Contains(t, result.Message, "value too long")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitTables(t *testing.T) {
	s, mock := newMockSink(t, Snowflake{}, 0)
	catalog := report.NewCatalog(
		report.ReportSpec{Key: "A", Table: "GA4_DIM_A", Dimensions: []string{"date"}, Metrics: []string{"sessions"}},
		report.ReportSpec{Key: "B", Table: "GA4_DIM_B", Dimensions: []string{"date"}, Metrics: []string{"eventCount"}},
	)

	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	for _, table := range []string{"GA4_DIM_A", "GA4_DIM_B"} {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM information_schema.tables").
			WithArgs(table).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, s.InitTables(context.Background(), catalog, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}
