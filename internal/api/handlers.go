package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/ga4"
	"github.com/ignite/ga4-loader/internal/pipeline"
	"github.com/ignite/ga4-loader/internal/pkg/distlock"
	"github.com/ignite/ga4-loader/internal/pkg/httputil"
	"github.com/ignite/ga4-loader/internal/pkg/logger"
	"github.com/ignite/ga4-loader/internal/report"
	"github.com/ignite/ga4-loader/internal/runlog"
)

// Version is the service version reported by /health.
const Version = "1.0.0"

// analyticsAPI is the slice of the GA4 client the handlers call directly
// (metadata and realtime; report extraction goes through the pipeline).
type analyticsAPI interface {
	GetMetadata(ctx context.Context, propertyID string) (*ga4.Metadata, error)
	RunRealtimeReport(ctx context.Context, propertyID string, req ga4.RunRealtimeReportRequest) (*ga4.RunReportResponse, error)
}

// tableManager is the slice of the warehouse sink the handlers call.
type tableManager interface {
	InitTables(ctx context.Context, catalog *report.Catalog, prefix string) error
	Dialect() string
	Dataset() string
}

// runHistory records and lists batch runs.
type runHistory interface {
	Record(ctx context.Context, run runlog.Run) error
	Recent(ctx context.Context, limit int) ([]runlog.Run, error)
}

// lockFactory builds the run lock for one property/date. Nil disables
// locking.
type lockFactory func(propertyID, date string) distlock.DistLock

// Handlers contains all HTTP handlers and their collaborators.
type Handlers struct {
	cfg       *config.Config
	pipe      *pipeline.Pipeline
	analytics analyticsAPI
	tables    tableManager
	runs      runHistory
	newLock   lockFactory
	now       func() time.Time
}

// NewHandlers creates the handler set. analytics, runs and newLock may be
// nil; the corresponding endpoints degrade gracefully.
func NewHandlers(cfg *config.Config, pipe *pipeline.Pipeline, analytics analyticsAPI, tables tableManager, runs runHistory, newLock lockFactory) *Handlers {
	return &Handlers{
		cfg:       cfg,
		pipe:      pipe,
		analytics: analytics,
		tables:    tables,
		runs:      runs,
		newLock:   newLock,
		now:       time.Now,
	}
}

// HealthCheck reports service identity and destination wiring.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":     "healthy",
		"service":    "ga4-loader",
		"version":    Version,
		"timestamp":  h.now().UTC().Format(time.RFC3339),
		"dialect":    h.tables.Dialect(),
		"dataset":    h.tables.Dataset(),
		"properties": h.cfg.GA4.Properties(),
	})
}

// ListReports returns a summary of every catalog entry.
func (h *Handlers) ListReports(w http.ResponseWriter, r *http.Request) {
	catalog := h.pipe.Catalog()
	reports := make(map[string]any, catalog.Len())
	for _, spec := range catalog.Specs() {
		reports[spec.Key] = map[string]any{
			"table":            spec.Table,
			"description":      spec.Description,
			"dimensions_count": len(spec.Dimensions),
			"metrics_count":    len(spec.Metrics),
		}
	}
	httputil.OK(w, map[string]any{
		"status":  report.StatusSuccess,
		"reports": reports,
		"count":   catalog.Len(),
	})
}

// GetReport returns one catalog entry in full, columns included.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	spec, err := h.pipe.Catalog().Get(key)
	if err != nil {
		httputil.ReportError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"status":      report.StatusSuccess,
		"key":         spec.Key,
		"table":       spec.Table,
		"description": spec.Description,
		"dimensions":  spec.Dimensions,
		"metrics":     spec.Metrics,
		"columns":     report.Columns(spec),
	})
}

// GetMetadata proxies the property's dimension/metric metadata.
func (h *Handlers) GetMetadata(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "analytics client not configured")
		return
	}
	property := r.URL.Query().Get("property_id")
	if property == "" {
		property = h.cfg.GA4.PropertyID
	}
	if property == "" {
		httputil.BadRequest(w, "property_id is required")
		return
	}

	meta, err := h.analytics.GetMetadata(r.Context(), property)
	if err != nil {
		httputil.ReportError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"status":   report.StatusSuccess,
		"metadata": meta,
	})
}

// GetConfig returns the sanitized effective configuration. Secret material
// never appears here.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": report.StatusSuccess,
		"config": map[string]any{
			"server": map[string]any{
				"port": h.cfg.Server.Port,
			},
			"ga4": map[string]any{
				"property_id": h.cfg.GA4.PropertyID,
				"timezone":    h.cfg.GA4.Timezone,
				"days_back":   h.cfg.GA4.DaysBack,
				"base_url":    h.cfg.GA4.BaseURL,
			},
			"warehouse": map[string]any{
				"dialect":      h.cfg.Warehouse.Dialect,
				"dataset":      h.cfg.Warehouse.Dataset,
				"table_prefix": h.cfg.Warehouse.TablePrefix,
				"chunk_size":   h.cfg.Warehouse.ChunkSize,
			},
			"secrets": map[string]any{
				"enabled": h.cfg.Secrets.Enabled,
				"region":  h.cfg.Secrets.Region,
			},
			"archive": map[string]any{
				"enabled": h.cfg.Archive.Enabled,
				"bucket":  h.cfg.Archive.Bucket,
			},
			"redis": map[string]any{
				"enabled": h.cfg.Redis.Enabled(),
			},
		},
	})
}

// ListRuns returns recent run history.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "run history not configured")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"status": report.StatusSuccess,
		"runs":   runs,
		"count":  len(runs),
	})
}

// initTablesRequest selects which tables to create.
type initTablesRequest struct {
	TablePrefix string   `json:"table_prefix"`
	ReportKeys  []string `json:"report_keys"`
}

// InitTables ensures the dataset and the requested (or all) report tables.
func (h *Handlers) InitTables(w http.ResponseWriter, r *http.Request) {
	var req initTablesRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}

	catalog, err := h.subsetCatalog(req.ReportKeys)
	if err != nil {
		httputil.ReportError(w, err)
		return
	}

	prefix := req.TablePrefix
	if prefix == "" {
		prefix = h.cfg.Warehouse.TablePrefix
	}

	if err := h.tables.InitTables(r.Context(), catalog, prefix); err != nil {
		httputil.ReportError(w, report.NewError(report.KindSchema, "initializing tables", err))
		return
	}
	httputil.OK(w, map[string]any{
		"status": report.StatusSuccess,
		"tables": catalog.Len(),
	})
}

// subsetCatalog resolves the requested keys against the full catalog, or
// returns the full catalog when none are named.
func (h *Handlers) subsetCatalog(keys []string) (*report.Catalog, error) {
	full := h.pipe.Catalog()
	if len(keys) == 0 {
		return full, nil
	}
	specs := make([]report.ReportSpec, 0, len(keys))
	for _, k := range keys {
		spec, err := full.Get(k)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return report.NewCatalog(specs...), nil
}

// extractRequest is the body of every extraction endpoint. All fields are
// optional; missing ones fall back to config.
type extractRequest struct {
	PropertyID  string   `json:"property_id"`
	PropertyIDs []string `json:"property_ids"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	ReportKeys  []string `json:"report_keys"`
	TablePrefix string   `json:"table_prefix"`
	InitTables  bool     `json:"init_tables"`
}

func (h *Handlers) decodeExtract(w http.ResponseWriter, r *http.Request) (extractRequest, bool) {
	var req extractRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return req, false
	}
	if req.PropertyID == "" {
		req.PropertyID = h.cfg.GA4.PropertyID
	}
	return req, true
}

// tryLock takes the run lock for one property/date without writing any
// response. A nil lock with ok=true means locking is disabled.
func (h *Handlers) tryLock(ctx context.Context, property, date string) (distlock.DistLock, bool, error) {
	if h.newLock == nil {
		return nil, true, nil
	}
	lock := h.newLock(report.CleanPropertyID(property), date)
	ok, err := lock.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return lock, true, nil
}

// acquireRunLock takes the run lock for one property/date. The bool reports
// whether the caller may proceed; on false a response has been written.
func (h *Handlers) acquireRunLock(w http.ResponseWriter, r *http.Request, property, date string) (distlock.DistLock, bool) {
	lock, ok, err := h.tryLock(r.Context(), property, date)
	if err != nil {
		httputil.InternalError(w, err)
		return nil, false
	}
	if !ok {
		httputil.Error(w, http.StatusConflict, "a load for this property and date is already running")
		return nil, false
	}
	return lock, true
}

func releaseLock(ctx context.Context, lock distlock.DistLock) {
	if lock == nil {
		return
	}
	if err := lock.Release(ctx); err != nil {
		logger.Warn("run lock release failed", "error", err.Error())
	}
}

// batchStatus derives the response discriminator and HTTP code from a batch
// summary: every key failing is a hard 500, anything else is a 200 with the
// failures embedded.
func batchStatus(s pipeline.Summary) (report.Status, int) {
	switch {
	case s.Failed == 0:
		return report.StatusSuccess, http.StatusOK
	case s.Successful > 0:
		return report.StatusWarning, http.StatusOK
	default:
		return report.StatusError, http.StatusInternalServerError
	}
}

// resolvePeriod fills the shared batch window from the request or default.
func (h *Handlers) resolvePeriod(req extractRequest) report.DateRange {
	if req.StartDate != "" && req.EndDate != "" {
		return report.DateRange{Start: req.StartDate, End: req.EndDate}
	}
	return h.pipe.DefaultRange()
}

// ExtractAll runs every requested report key for one property.
func (h *Handlers) ExtractAll(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExtract(w, r)
	if !ok {
		return
	}
	if req.PropertyID == "" {
		httputil.ReportError(w, report.Errorf(report.KindValidation, "property_id is required and no default is configured"))
		return
	}

	pipe := h.pipe.WithPrefix(req.TablePrefix)
	period := h.resolvePeriod(req)

	lock, ok := h.acquireRunLock(w, r, req.PropertyID, period.Start)
	if !ok {
		return
	}
	defer releaseLock(r.Context(), lock)

	if req.InitTables {
		catalog, err := h.subsetCatalog(req.ReportKeys)
		if err != nil {
			httputil.ReportError(w, err)
			return
		}
		if err := h.tables.InitTables(r.Context(), catalog, req.TablePrefix); err != nil {
			httputil.ReportError(w, report.NewError(report.KindSchema, "initializing tables", err))
			return
		}
	}

	started := h.now()
	result := pipe.RunAll(r.Context(), req.PropertyID, req.ReportKeys, period.Start, period.End)
	h.recordRun(r.Context(), result, started)

	status, code := batchStatus(result.Summary)
	httputil.JSON(w, code, map[string]any{
		"status":      status,
		"property_id": result.PropertyID,
		"period":      result.Period,
		"outcomes":    result.Outcomes,
		"summary":     result.Summary,
	})
}

// ExtractOne runs a single report key.
func (h *Handlers) ExtractOne(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExtract(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")

	// resolve before any I/O so an unknown key or missing property never
	// touches the lock or the source
	if _, err := h.pipe.Catalog().Get(key); err != nil {
		httputil.ReportError(w, err)
		return
	}
	if req.PropertyID == "" {
		httputil.ReportError(w, report.Errorf(report.KindValidation, "property_id is required and no default is configured"))
		return
	}

	pipe := h.pipe.WithPrefix(req.TablePrefix)
	period := h.resolvePeriod(req)

	lock, ok := h.acquireRunLock(w, r, req.PropertyID, period.Start)
	if !ok {
		return
	}
	defer releaseLock(r.Context(), lock)

	outcome := pipe.Run(r.Context(), req.PropertyID, key, period.Start, period.End)

	code := http.StatusOK
	if !outcome.OK() {
		code = httputil.KindStatus(outcome.ErrorKind)
	}
	httputil.JSON(w, code, map[string]any{
		"status":  outcome.Status,
		"outcome": outcome,
	})
}

// batchEntry is one property's slot in the batch response. A skipped entry
// means that property's lock could not be taken and no extraction ran.
type batchEntry struct {
	pipeline.BatchResult
	Skipped bool   `json:"skipped,omitempty"`
	Message string `json:"message,omitempty"`
}

// ExtractBatch runs the requested keys for several properties with one
// shared date range. Properties are isolated: a held lock on one records a
// skipped entry and the rest still run, so completed work is always in the
// response.
func (h *Handlers) ExtractBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeExtract(w, r)
	if !ok {
		return
	}

	properties := req.PropertyIDs
	if len(properties) == 0 {
		properties = h.cfg.GA4.Properties()
	}
	if len(properties) == 0 {
		httputil.ReportError(w, report.Errorf(report.KindValidation, "property_ids is required and no properties are configured"))
		return
	}

	pipe := h.pipe.WithPrefix(req.TablePrefix)
	period := h.resolvePeriod(req)
	started := h.now()

	entries := make([]batchEntry, 0, len(properties))
	total := pipeline.Summary{}
	skipped := 0
	for _, property := range properties {
		lock, ok, err := h.tryLock(r.Context(), property, period.Start)
		if !ok {
			message := "skipped: a load for this property and date is already running"
			if err != nil {
				logger.Warn("run lock acquire failed", "property_id", property, "error", err.Error())
				message = "skipped: run lock unavailable"
			}
			entries = append(entries, batchEntry{
				BatchResult: pipeline.BatchResult{
					PropertyID: report.CleanPropertyID(property),
					Period:     period,
				},
				Skipped: true,
				Message: message,
			})
			skipped++
			continue
		}
		result := pipe.RunAll(r.Context(), property, req.ReportKeys, period.Start, period.End)
		releaseLock(r.Context(), lock)

		h.recordRun(r.Context(), result, started)
		entries = append(entries, batchEntry{BatchResult: result})
		total.Total += result.Summary.Total
		total.Successful += result.Summary.Successful
		total.Failed += result.Summary.Failed
		total.TotalRows += result.Summary.TotalRows
	}

	status, code := batchStatus(total)
	if skipped > 0 && status == report.StatusSuccess {
		status = report.StatusWarning
	}
	if skipped == len(properties) {
		status, code = report.StatusError, http.StatusConflict
	}
	httputil.JSON(w, code, map[string]any{
		"status":  status,
		"period":  period,
		"results": entries,
		"summary": total,
	})
}

// realtimeRequest selects the realtime snapshot shape.
type realtimeRequest struct {
	PropertyID string   `json:"property_id"`
	Dimensions []string `json:"dimensions"`
	Metrics    []string `json:"metrics"`
}

// Realtime serves a current-activity snapshot. Rows go straight to the
// caller, never to the warehouse.
func (h *Handlers) Realtime(w http.ResponseWriter, r *http.Request) {
	if h.analytics == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "analytics client not configured")
		return
	}
	var req realtimeRequest
	if r.ContentLength > 0 && !httputil.Decode(w, r, &req) {
		return
	}
	if req.PropertyID == "" {
		req.PropertyID = h.cfg.GA4.PropertyID
	}
	if req.PropertyID == "" {
		httputil.ReportError(w, report.Errorf(report.KindValidation, "property_id is required and no default is configured"))
		return
	}
	if len(req.Dimensions) == 0 {
		req.Dimensions = []string{"country"}
	}
	if len(req.Metrics) == 0 {
		req.Metrics = []string{"activeUsers"}
	}

	apiReq := ga4.RunRealtimeReportRequest{}
	for _, d := range req.Dimensions {
		apiReq.Dimensions = append(apiReq.Dimensions, ga4.Dimension{Name: d})
	}
	for _, m := range req.Metrics {
		apiReq.Metrics = append(apiReq.Metrics, ga4.Metric{Name: m})
	}

	resp, err := h.analytics.RunRealtimeReport(r.Context(), req.PropertyID, apiReq)
	if err != nil {
		httputil.ReportError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"status":      report.StatusSuccess,
		"property_id": report.CleanPropertyID(req.PropertyID),
		"row_count":   resp.RowCount,
		"rows":        resp.ReportRows(),
	})
}

// recordRun persists one batch result. Best-effort: failures are logged and
// swallowed.
func (h *Handlers) recordRun(ctx context.Context, result pipeline.BatchResult, started time.Time) {
	if h.runs == nil {
		return
	}
	status := "success"
	switch {
	case result.Summary.Successful == 0 && result.Summary.Failed > 0:
		status = "failed"
	case result.Summary.Failed > 0:
		status = "partial"
	}
	err := h.runs.Record(ctx, runlog.Run{
		PropertyID: result.PropertyID,
		StartDate:  result.Period.Start,
		EndDate:    result.Period.End,
		Total:      result.Summary.Total,
		Successful: result.Summary.Successful,
		Failed:     result.Summary.Failed,
		TotalRows:  result.Summary.TotalRows,
		Status:     status,
		StartedAt:  started,
		FinishedAt: h.now(),
	})
	if err != nil {
		logger.Warn("run history write failed", "property_id", result.PropertyID, "error", err.Error())
	}
}
