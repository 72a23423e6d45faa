package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/ga4-loader/internal/pkg/logger"
	"github.com/ignite/ga4-loader/internal/report"
)

// Options configures a Pipeline. The zero value is usable with UTC dates and
// a one-day lookback.
type Options struct {
	// Timezone resolves the default "yesterday" date range. Nil means UTC.
	Timezone *time.Location
	// DaysBack is how far behind today the default range sits (1 = yesterday).
	DaysBack int
	// TablePrefix, when set, prefixes every destination table name.
	TablePrefix string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Pipeline extracts one report at a time from a Source and loads it into a
// Sink: resolve, fetch, transform, schema-ensure, replace partition, insert.
// It holds no mutable state across runs; every run owns its own rows.
type Pipeline struct {
	catalog *report.Catalog
	source  Source
	sink    Sink
	archive Archiver
	opts    Options
}

// New builds a Pipeline. archive may be nil.
func New(catalog *report.Catalog, source Source, sink Sink, archive Archiver, opts Options) *Pipeline {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{catalog: catalog, source: source, sink: sink, archive: archive, opts: opts}
}

// Catalog exposes the pipeline's report catalog for introspection endpoints.
func (p *Pipeline) Catalog() *report.Catalog { return p.catalog }

// WithPrefix returns a pipeline writing to prefixed tables, sharing every
// other collaborator. An empty or unchanged prefix returns the receiver.
func (p *Pipeline) WithPrefix(prefix string) *Pipeline {
	if prefix == "" || prefix == p.opts.TablePrefix {
		return p
	}
	cp := *p
	cp.opts.TablePrefix = prefix
	return &cp
}

// DefaultRange returns the extraction window used when the caller omits
// dates: a single day, DaysBack days behind now in the configured timezone.
func (p *Pipeline) DefaultRange() report.DateRange {
	day := p.opts.Now().In(p.opts.Timezone).AddDate(0, 0, -p.opts.DaysBack).Format("2006-01-02")
	return report.DateRange{Start: day, End: day}
}

// resolveRange fills in the default window when either bound is missing, so
// a half-specified request never produces an open-ended query.
func (p *Pipeline) resolveRange(start, end string) report.DateRange {
	if start == "" || end == "" {
		return p.DefaultRange()
	}
	return report.DateRange{Start: start, End: end}
}

// Run executes the full pipeline for one report key. All failures come back
// inside the Outcome; Run never panics and never returns an error value.
func (p *Pipeline) Run(ctx context.Context, propertyID, key, start, end string) Outcome {
	period := p.resolveRange(start, end)
	property := report.CleanPropertyID(propertyID)

	if property == "" {
		return errorOutcome(key, property, period,
			report.Errorf(report.KindValidation, "property_id is required"))
	}

	spec, err := p.catalog.Get(key)
	if err != nil {
		return errorOutcome(key, property, period, asReportError(err))
	}
	table := spec.TableName(p.opts.TablePrefix)

	extraction, rerr := p.extract(ctx, spec, property, period)
	if rerr != nil {
		return errorOutcome(key, property, period, rerr)
	}
	extraction.Table = table

	if extraction.RowCount == 0 {
		logger.Warn("no rows extracted, skipping load", "report", key, "property_id", property, "start", period.Start)
		return Outcome{
			Key:        key,
			Status:     report.StatusWarning,
			Message:    "no rows extracted",
			Table:      table,
			Period:     period,
			PropertyID: property,
		}
	}

	tableSpec := report.TableFor(spec, p.opts.TablePrefix)
	if rerr := p.ensureSchema(ctx, tableSpec); rerr != nil {
		return errorOutcome(key, property, period, rerr)
	}

	result := p.load(ctx, tableSpec, extraction)
	out := Outcome{
		Key:           key,
		Status:        result.Status,
		Message:       result.Message,
		Table:         table,
		RowsExtracted: extraction.RowCount,
		RowsInserted:  result.RowsInserted,
		Period:        period,
		PropertyID:    property,
	}
	if result.Status == report.StatusError {
		out.ErrorKind = report.KindLoad
	}
	return out
}

// extract fetches the raw report and transforms it into enriched rows.
func (p *Pipeline) extract(ctx context.Context, spec report.ReportSpec, property string, period report.DateRange) (*report.ExtractionResult, *report.Error) {
	dims := report.FilterCustomDimensions(spec.Dimensions)

	raw, err := p.source.RunReport(ctx, property, dims, spec.Metrics, period.Start, period.End)
	if err != nil {
		var re *report.Error
		if errors.As(err, &re) {
			return nil, re
		}
		return nil, report.NewError(report.KindSource,
			fmt.Sprintf("fetching report %s", spec.Key), err)
	}

	if p.archive != nil && len(raw) > 0 {
		if aerr := p.archive.Store(ctx, property, spec.Table, period.Start, raw); aerr != nil {
			logger.Warn("archive write failed", "report", spec.Key, "error", aerr.Error())
		}
	}

	now := p.opts.Now()
	rows := make([]report.Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, report.Enrich(transformRow(r, dims, spec.Metrics), property, period.Start, now))
	}

	return &report.ExtractionResult{
		Key:         spec.Key,
		Description: spec.Description,
		RowCount:    len(rows),
		Rows:        rows,
		Period:      period,
		PropertyID:  property,
		ExtractedAt: now.UTC(),
	}, nil
}

// transformRow maps one raw vendor row into canonical form: dimension names
// normalize to snake_case, the date dimension collapses to YYYY-MM-DD, and
// metric strings coerce to int64/float64 where they parse.
func transformRow(raw report.Row, dimensions, metrics []string) report.Row {
	out := report.NewRow(len(dimensions) + len(metrics))
	for _, d := range dimensions {
		name := report.Normalize(d)
		v, ok := raw.Get(d)
		if !ok {
			out.Set(name, nil)
			continue
		}
		if name == report.ColumnDate {
			if s, isStr := v.(string); isStr {
				v = report.NormalizeReportDate(s)
			}
		}
		out.Set(name, v)
	}
	for _, m := range metrics {
		name := report.Normalize(m)
		v, ok := raw.Get(m)
		if !ok || v == nil {
			out.Set(name, nil)
			continue
		}
		if s, isStr := v.(string); isStr {
			out.Set(name, report.CoerceMetric(s))
		} else {
			out.Set(name, v)
		}
	}
	return out
}

func (p *Pipeline) ensureSchema(ctx context.Context, spec report.TableSpec) *report.Error {
	if err := p.sink.EnsureDataset(ctx); err != nil {
		return report.NewError(report.KindSchema, "ensuring dataset", err)
	}
	if err := p.sink.EnsureTable(ctx, spec); err != nil {
		return report.NewError(report.KindSchema,
			fmt.Sprintf("ensuring table %s", spec.Name), err)
	}
	return nil
}

// load replaces the partition and inserts the extracted rows. A failed
// partition delete is logged and the insert proceeds anyway; on that path a
// rerun can leave duplicate rows, which is the accepted trade against
// aborting the whole load.
func (p *Pipeline) load(ctx context.Context, spec report.TableSpec, extraction *report.ExtractionResult) report.LoadResult {
	partition := extraction.Period.Start
	if v, ok := extraction.Rows[0].Get(report.ColumnDate); ok {
		if s, isStr := v.(string); isStr && s != "" {
			partition = s
		}
	}

	if !p.sink.DeletePartition(ctx, spec.Name, partition) {
		logger.Warn("partition delete failed, inserting anyway", "table", spec.Name, "date", partition)
	}

	return p.sink.InsertRows(ctx, spec.Name, spec.Columns, extraction.Rows)
}

func asReportError(err error) *report.Error {
	var re *report.Error
	if errors.As(err, &re) {
		return re
	}
	return report.NewError(report.KindSource, "pipeline step failed", err)
}
