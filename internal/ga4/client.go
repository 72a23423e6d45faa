package ga4

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/pkg/httpretry"
	"github.com/ignite/ga4-loader/internal/report"
)

// DefaultBaseURL is the Analytics Data API v1beta endpoint.
const DefaultBaseURL = "https://analyticsdata.googleapis.com/v1beta"

// maxReportRows is the per-request row limit we ask for. Daily report slices
// stay well under it; paging is deliberately not implemented.
const maxReportRows = 100000

// batchLimit is the API's cap on requests per batchRunReports call.
const batchLimit = 5

// Client is an Analytics Data API client
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Analytics Data API client
func NewClient(cfg config.GA4Config, tokens oauth2.TokenSource) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries),
	}
}

// doRequest makes an HTTP request to the Analytics Data API
func (c *Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, report.NewError(report.KindAuth, "obtaining access token", err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, report.NewError(report.KindSource, "executing request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, report.NewError(report.KindSource, "reading response", err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := report.KindSource
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = report.KindAuth
		}
		return nil, report.Errorf(kind, "analytics API error (status %d): %s", resp.StatusCode, apiErrorMessage(respBody))
	}

	return respBody, nil
}

// apiErrorMessage pulls the human message out of the Google error envelope,
// falling back to a trimmed raw body.
func apiErrorMessage(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	const max = 512
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

// RunReport runs one report against a property and returns its raw rows.
func (c *Client) RunReport(ctx context.Context, propertyID string, req RunReportRequest) (*RunReportResponse, error) {
	if req.Limit == 0 {
		req.Limit = maxReportRows
	}

	body, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/properties/%s:runReport", report.CleanPropertyID(propertyID)), req)
	if err != nil {
		return nil, err
	}

	var response RunReportResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, report.NewError(report.KindSource, "parsing report response", err)
	}
	return &response, nil
}

// BatchRunReports runs up to five reports in one call, in request order.
func (c *Client) BatchRunReports(ctx context.Context, propertyID string, reqs []RunReportRequest) (*BatchRunReportsResponse, error) {
	if len(reqs) > batchLimit {
		return nil, report.Errorf(report.KindValidation, "batchRunReports accepts at most %d requests, got %d", batchLimit, len(reqs))
	}
	for i := range reqs {
		if reqs[i].Limit == 0 {
			reqs[i].Limit = maxReportRows
		}
	}

	body, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/properties/%s:batchRunReports", report.CleanPropertyID(propertyID)), BatchRunReportsRequest{Requests: reqs})
	if err != nil {
		return nil, err
	}

	var response BatchRunReportsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, report.NewError(report.KindSource, "parsing batch response", err)
	}
	return &response, nil
}

// RunRealtimeReport returns a snapshot of current activity. Rows are never
// warehouse-loaded; the handler serves them directly.
func (c *Client) RunRealtimeReport(ctx context.Context, propertyID string, req RunRealtimeReportRequest) (*RunReportResponse, error) {
	body, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/properties/%s:runRealtimeReport", report.CleanPropertyID(propertyID)), req)
	if err != nil {
		return nil, err
	}

	var response RunReportResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, report.NewError(report.KindSource, "parsing realtime response", err)
	}
	return &response, nil
}

// GetMetadata fetches the dimension/metric metadata for a property.
func (c *Client) GetMetadata(ctx context.Context, propertyID string) (*Metadata, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/properties/%s/metadata", report.CleanPropertyID(propertyID)), nil)
	if err != nil {
		return nil, err
	}

	var response Metadata
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, report.NewError(report.KindSource, "parsing metadata response", err)
	}
	return &response, nil
}

// ReportRows flattens a report response into name-keyed rows. Values stay in the
// API's string form; typing happens downstream.
func (r *RunReportResponse) ReportRows() []report.Row {
	rows := make([]report.Row, 0, len(r.Rows))
	for _, raw := range r.Rows {
		row := report.NewRow(len(r.DimensionHeaders) + len(r.MetricHeaders))
		for i, h := range r.DimensionHeaders {
			if i < len(raw.DimensionValues) {
				row.Set(h.Name, raw.DimensionValues[i].Value)
			}
		}
		for i, h := range r.MetricHeaders {
			if i < len(raw.MetricValues) {
				row.Set(h.Name, raw.MetricValues[i].Value)
			}
		}
		rows = append(rows, row)
	}
	return rows
}
