package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/ga4-loader/internal/report"
)

type fakeSource struct {
	mu    sync.Mutex
	rows  map[string][]report.Row // keyed by dimensions[1] marker, see rowsFor
	err   error
	calls []sourceCall
}

type sourceCall struct {
	property   string
	dimensions []string
	metrics    []string
	start, end string
}

func (f *fakeSource) RunReport(_ context.Context, property string, dimensions, metrics []string, start, end string) ([]report.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sourceCall{property, dimensions, metrics, start, end})
	if f.err != nil {
		return nil, f.err
	}
	return f.rows["*"], nil
}

type fakeSink struct {
	mu             sync.Mutex
	deleteOK       bool
	insertErr      bool
	datasetCalls   int
	tableCalls     []string
	deletes        []string // "table@date"
	inserted       map[string][]report.Row
	insertedCols   map[string][]report.ColumnSpec
	failDatasetErr error
	failTableErr   error
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		deleteOK:     true,
		inserted:     map[string][]report.Row{},
		insertedCols: map[string][]report.ColumnSpec{},
	}
}

func (f *fakeSink) EnsureDataset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasetCalls++
	return f.failDatasetErr
}

func (f *fakeSink) EnsureTable(_ context.Context, spec report.TableSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tableCalls = append(f.tableCalls, spec.Name)
	return f.failTableErr
}

func (f *fakeSink) DeletePartition(_ context.Context, table, date string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, table+"@"+date)
	return f.deleteOK
}

func (f *fakeSink) InsertRows(_ context.Context, table string, columns []report.ColumnSpec, rows []report.Row) report.LoadResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr {
		return report.LoadResult{Status: report.StatusError, Message: "insert failed", Table: table}
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	f.insertedCols[table] = columns
	return report.LoadResult{
		Status:       report.StatusSuccess,
		Message:      fmt.Sprintf("inserted %d rows", len(rows)),
		Table:        table,
		RowsInserted: len(rows),
	}
}

func (f *fakeSink) sinkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.datasetCalls + len(f.tableCalls) + len(f.deletes)
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC)
}

func campaignRow(date, campaign, sessions string) report.Row {
	r := report.NewRow(3)
	r.Set("date", date)
	r.Set("campaignName", campaign)
	r.Set("sessions", sessions)
	return r
}

func newTestPipeline(src *fakeSource, sink *fakeSink) *Pipeline {
	return New(report.DefaultCatalog(), src, sink, nil, Options{Now: fixedNow})
}

func TestRunHappyPath(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {
		campaignRow("20240115", "spring_sale", "42"),
		campaignRow("20240115", "newsletter", "7"),
	}}}
	sink := newFakeSink()
	p := newTestPipeline(src, sink)

	out := p.Run(context.Background(), "properties/123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	require.Equal(t, report.StatusSuccess, out.Status, out.Message)
	assert.Equal(t, "CAMPAIGN", out.Key)
	assert.Equal(t, "GA4_DIM_CAMPAIGN", out.Table)
	assert.Equal(t, 2, out.RowsExtracted)
	assert.Equal(t, 2, out.RowsInserted)
	assert.Equal(t, "123", out.PropertyID)

	// one fetch, with the property cleaned and the full window passed through
	require.Len(t, src.calls, 1)
	assert.Equal(t, "123", src.calls[0].property)
	assert.Equal(t, "2024-01-15", src.calls[0].start)

	// delete-then-insert on the partition the rows carry
	require.Equal(t, []string{"GA4_DIM_CAMPAIGN@2024-01-15"}, sink.deletes)
	rows := sink.inserted["GA4_DIM_CAMPAIGN"]
	require.Len(t, rows, 2)

	first := rows[0]
	v, _ := first.Get(report.ColumnSessionKey)
	assert.Equal(t, "123_2024-01-15", v)
	v, _ = first.Get("campaign_name")
	assert.Equal(t, "spring_sale", v)
	v, _ = first.Get("sessions")
	assert.Equal(t, int64(42), v)
	v, _ = first.Get(report.ColumnDate)
	assert.Equal(t, "2024-01-15", v)
}

func TestRunEmptyExtractionIsWarning(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": nil}}
	sink := newFakeSink()
	p := newTestPipeline(src, sink)

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.StatusWarning, out.Status)
	assert.True(t, out.OK())
	assert.Equal(t, 0, out.RowsExtracted)
	// no schema, delete, or insert work for an empty day
	assert.Equal(t, 0, sink.sinkCalls())
	assert.Empty(t, sink.inserted)
}

func TestRunUnknownKey(t *testing.T) {
	src := &fakeSource{}
	sink := newFakeSink()
	p := newTestPipeline(src, sink)

	out := p.Run(context.Background(), "123", "NOPE", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.StatusError, out.Status)
	assert.Equal(t, report.KindNotFound, out.ErrorKind)
	assert.Contains(t, out.Message, "NOPE")
	assert.Contains(t, out.Message, "CAMPAIGN")
	// rejected before any I/O
	assert.Empty(t, src.calls)
	assert.Equal(t, 0, sink.sinkCalls())
}

func TestRunMissingProperty(t *testing.T) {
	src := &fakeSource{}
	p := newTestPipeline(src, newFakeSink())

	out := p.Run(context.Background(), "", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.StatusError, out.Status)
	assert.Equal(t, report.KindValidation, out.ErrorKind)
	assert.Empty(t, src.calls)
}

func TestRunSourceFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("upstream 503")}
	sink := newFakeSink()
	p := newTestPipeline(src, sink)

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.StatusError, out.Status)
	assert.Equal(t, report.KindSource, out.ErrorKind)
	assert.Contains(t, out.Message, "upstream 503")
	assert.Equal(t, 0, sink.sinkCalls())
}

func TestRunClassifiedSourceErrorPassesThrough(t *testing.T) {
	src := &fakeSource{err: report.Errorf(report.KindAuth, "no credential source succeeded")}
	p := newTestPipeline(src, newFakeSink())

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.KindAuth, out.ErrorKind)
}

func TestRunSchemaFailure(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {campaignRow("20240115", "x", "1")}}}
	sink := newFakeSink()
	sink.failTableErr = errors.New("permission denied")
	p := newTestPipeline(src, sink)

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.KindSchema, out.ErrorKind)
	assert.Empty(t, sink.deletes)
	assert.Empty(t, sink.inserted)
}

func TestRunInsertFailure(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {campaignRow("20240115", "x", "1")}}}
	sink := newFakeSink()
	sink.insertErr = true
	p := newTestPipeline(src, sink)

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.StatusError, out.Status)
	assert.Equal(t, report.KindLoad, out.ErrorKind)
	assert.Equal(t, 1, out.RowsExtracted)
	assert.Equal(t, 0, out.RowsInserted)
}

func TestRunDeleteFailureStillInserts(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {campaignRow("20240115", "x", "1")}}}
	sink := newFakeSink()
	sink.deleteOK = false
	p := newTestPipeline(src, sink)

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.StatusSuccess, out.Status)
	assert.Equal(t, 1, out.RowsInserted)
	assert.Len(t, sink.inserted["GA4_DIM_CAMPAIGN"], 1)
}

// Rerunning the same day deletes the partition before each insert, so the
// second run does not stack rows on the first.
func TestRunIsIdempotentPerPartition(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {campaignRow("20240115", "x", "1")}}}
	sink := newFakeSink()
	p := newTestPipeline(src, sink)

	p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")
	p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, []string{
		"GA4_DIM_CAMPAIGN@2024-01-15",
		"GA4_DIM_CAMPAIGN@2024-01-15",
	}, sink.deletes)
}

func TestRunDefaultsToYesterday(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": nil}}
	p := newTestPipeline(src, newFakeSink())

	out := p.Run(context.Background(), "123", "CAMPAIGN", "", "")

	assert.Equal(t, report.DateRange{Start: "2024-01-15", End: "2024-01-15"}, out.Period)
	require.Len(t, src.calls, 1)
	assert.Equal(t, "2024-01-15", src.calls[0].start)
	assert.Equal(t, "2024-01-15", src.calls[0].end)
}

func TestRunDropsCustomDimensionsFromFetch(t *testing.T) {
	catalog := report.NewCatalog(report.ReportSpec{
		Key:        "CUSTOM",
		Table:      "GA4_DIM_CUSTOM",
		Dimensions: []string{"date", "customEvent:plan_tier", "country"},
		Metrics:    []string{"sessions"},
	})

	src := &fakeSource{rows: map[string][]report.Row{"*": nil}}
	p := New(catalog, src, newFakeSink(), nil, Options{Now: fixedNow})

	p.Run(context.Background(), "123", "CUSTOM", "2024-01-15", "2024-01-15")

	require.Len(t, src.calls, 1)
	assert.Equal(t, []string{"date", "country"}, src.calls[0].dimensions)
}

func TestRunAppliesTablePrefix(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {campaignRow("20240115", "x", "1")}}}
	sink := newFakeSink()
	p := New(report.DefaultCatalog(), src, sink, nil, Options{Now: fixedNow, TablePrefix: "STAGING"})

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, "STAGING_GA4_DIM_CAMPAIGN", out.Table)
	assert.Contains(t, sink.tableCalls, "STAGING_GA4_DIM_CAMPAIGN")
}

type flakySource struct {
	mu      sync.Mutex
	failKey string // fail when this dimension is requested
	calls   int
}

func (f *flakySource) RunReport(_ context.Context, _ string, dimensions, _ []string, _, _ string) ([]report.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, d := range dimensions {
		if d == f.failKey {
			return nil, errors.New("report unavailable")
		}
	}
	return []report.Row{campaignRow("20240115", "x", "1")}, nil
}

func TestRunAllPartialFailure(t *testing.T) {
	// CAMPAIGN requests campaignName; fail exactly that report.
	src := &flakySource{failKey: "campaignName"}
	sink := newFakeSink()
	p := New(report.DefaultCatalog(), src, sink, nil, Options{Now: fixedNow})

	batch := p.RunAll(context.Background(), "123", []string{"CAMPAIGN", "DEVICE"}, "2024-01-15", "2024-01-15")

	assert.Equal(t, 2, batch.Summary.Total)
	assert.Equal(t, 1, batch.Summary.Successful)
	assert.Equal(t, 1, batch.Summary.Failed)

	failed, ok := batch.Outcome("CAMPAIGN")
	require.True(t, ok)
	assert.Equal(t, report.StatusError, failed.Status)

	succeeded, ok := batch.Outcome("DEVICE")
	require.True(t, ok)
	assert.Equal(t, report.StatusSuccess, succeeded.Status)
	// the failure did not stop the second key from running
	assert.Equal(t, 2, src.calls)
}

func TestRunAllDefaultsToFullCatalog(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": nil}}
	p := newTestPipeline(src, newFakeSink())

	batch := p.RunAll(context.Background(), "123", nil, "2024-01-15", "2024-01-15")

	assert.Len(t, batch.Outcomes, report.DefaultCatalog().Len())
	assert.Equal(t, report.DefaultCatalog().Keys()[0], batch.Outcomes[0].Key)
	// empty days are warnings, which count as successes
	assert.Equal(t, batch.Summary.Total, batch.Summary.Successful)
	assert.Equal(t, 0, batch.Summary.Failed)
}

func TestRunAllAuthFailureShortCircuits(t *testing.T) {
	src := &fakeSource{err: report.Errorf(report.KindAuth, "credentials rejected")}
	p := newTestPipeline(src, newFakeSink())

	batch := p.RunAll(context.Background(), "123", []string{"CAMPAIGN", "DEVICE", "EVENT"}, "2024-01-15", "2024-01-15")

	assert.Equal(t, 3, batch.Summary.Failed)
	// only the first key hit the network; the rest were skipped outright
	assert.Len(t, src.calls, 1)
	skipped, _ := batch.Outcome("EVENT")
	assert.Equal(t, report.KindAuth, skipped.ErrorKind)
	assert.Contains(t, skipped.Message, "skipped")
}

func TestRunBatchIsolatesProperties(t *testing.T) {
	src := &fakeSource{err: report.Errorf(report.KindAuth, "credentials rejected")}
	p := newTestPipeline(src, newFakeSink())

	results := p.RunBatch(context.Background(), []string{"111", "222"}, []string{"CAMPAIGN"}, "2024-01-15", "2024-01-15")

	require.Len(t, results, 2)
	// the second property still got its own attempt
	assert.Len(t, src.calls, 2)
	assert.Equal(t, "111", results[0].PropertyID)
	assert.Equal(t, "222", results[1].PropertyID)
}

type recordingArchiver struct {
	mu     sync.Mutex
	stores []string
	err    error
}

func (a *recordingArchiver) Store(_ context.Context, property, table, date string, rows []report.Row) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stores = append(a.stores, fmt.Sprintf("%s/%s/%s:%d", property, table, date, len(rows)))
	return a.err
}

func TestRunArchivesRawRows(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {campaignRow("20240115", "x", "1")}}}
	arch := &recordingArchiver{}
	p := New(report.DefaultCatalog(), src, newFakeSink(), arch, Options{Now: fixedNow})

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	require.Equal(t, report.StatusSuccess, out.Status)
	assert.Equal(t, []string{"123/GA4_DIM_CAMPAIGN/2024-01-15:1"}, arch.stores)
}

func TestRunArchiveFailureDoesNotFailRun(t *testing.T) {
	src := &fakeSource{rows: map[string][]report.Row{"*": {campaignRow("20240115", "x", "1")}}}
	arch := &recordingArchiver{err: errors.New("bucket gone")}
	p := New(report.DefaultCatalog(), src, newFakeSink(), arch, Options{Now: fixedNow})

	out := p.Run(context.Background(), "123", "CAMPAIGN", "2024-01-15", "2024-01-15")

	assert.Equal(t, report.StatusSuccess, out.Status)
	assert.Equal(t, 1, out.RowsInserted)
}
