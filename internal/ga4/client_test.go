package ga4

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/report"
)

func staticTokens() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"})
}

func newTestClient(server *httptest.Server) *Client {
	return &Client{
		baseURL: server.URL,
		tokens:  staticTokens(),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func sampleResponse() RunReportResponse {
	return RunReportResponse{
		DimensionHeaders: []DimensionHeader{{Name: "date"}, {Name: "campaignName"}},
		MetricHeaders:    []MetricHeader{{Name: "sessions", Type: "TYPE_INTEGER"}},
		Rows: []ReportRow{
			{
				DimensionValues: []HeaderValue{{Value: "20240115"}, {Value: "spring_sale"}},
				MetricValues:    []HeaderValue{{Value: "42"}},
			},
			{
				DimensionValues: []HeaderValue{{Value: "20240115"}, {Value: "newsletter"}},
				MetricValues:    []HeaderValue{{Value: "7"}},
			},
		},
		RowCount: 2,
	}
}

func TestNewClient(t *testing.T) {
	cfg := config.GA4Config{TimeoutSeconds: 30, MaxRetries: 3}
	client := NewClient(cfg, staticTokens())

	assert.NotNil(t, client)
	assert.Equal(t, DefaultBaseURL, client.baseURL)

	cfg.BaseURL = "http://localhost:9999"
	assert.Equal(t, "http://localhost:9999", NewClient(cfg, staticTokens()).baseURL)
}

func TestRunReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties/123:runReport", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req RunReportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []DateRangeRequest{{StartDate: "2024-01-15", EndDate: "2024-01-15"}}, req.DateRanges)
		assert.Equal(t, []Dimension{{Name: "date"}, {Name: "campaignName"}}, req.Dimensions)
		assert.Equal(t, int64(100000), req.Limit)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sampleResponse())
	}))
	defer server.Close()

	client := newTestClient(server)
	resp, err := client.RunReport(context.Background(), "properties/123", RunReportRequest{
		DateRanges: []DateRangeRequest{{StartDate: "2024-01-15", EndDate: "2024-01-15"}},
		Dimensions: []Dimension{{Name: "date"}, {Name: "campaignName"}},
		Metrics:    []Metric{{Name: "sessions"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, 2, resp.RowCount)
}

func TestRunReportAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"caller lacks permission","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).RunReport(context.Background(), "123", RunReportRequest{})
	require.Error(t, err)
	assert.True(t, report.IsKind(err, report.KindAuth))
	assert.Contains(t, err.Error(), "caller lacks permission")
}

func TestRunReportSourceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"unknown dimension: bogus","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).RunReport(context.Background(), "123", RunReportRequest{})
	require.Error(t, err)
	assert.True(t, report.IsKind(err, report.KindSource))
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "unknown dimension")
}

func TestBatchRunReports(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties/123:batchRunReports", r.URL.Path)

		var req BatchRunReportsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Requests, 2)

		json.NewEncoder(w).Encode(BatchRunReportsResponse{
			Reports: []RunReportResponse{sampleResponse(), {}},
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server).BatchRunReports(context.Background(), "123", []RunReportRequest{
		{Metrics: []Metric{{Name: "sessions"}}},
		{Metrics: []Metric{{Name: "eventCount"}}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Reports, 2)
}

func TestBatchRunReportsTooMany(t *testing.T) {
	reqs := make([]RunReportRequest, 6)
	_, err := (&Client{tokens: staticTokens()}).BatchRunReports(context.Background(), "123", reqs)
	require.Error(t, err)
	assert.True(t, report.IsKind(err, report.KindValidation))
}

func TestRunRealtimeReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties/123:runRealtimeReport", r.URL.Path)
		json.NewEncoder(w).Encode(RunReportResponse{
			DimensionHeaders: []DimensionHeader{{Name: "country"}},
			MetricHeaders:    []MetricHeader{{Name: "activeUsers"}},
			Rows: []ReportRow{{
				DimensionValues: []HeaderValue{{Value: "Brazil"}},
				MetricValues:    []HeaderValue{{Value: "17"}},
			}},
			RowCount: 1,
		})
	}))
	defer server.Close()

	resp, err := newTestClient(server).RunRealtimeReport(context.Background(), "123", RunRealtimeReportRequest{
		Dimensions: []Dimension{{Name: "country"}},
		Metrics:    []Metric{{Name: "activeUsers"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)
}

func TestGetMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/properties/123/metadata", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(Metadata{
			Name:       "properties/123/metadata",
			Dimensions: []MetadataDimension{{APIName: "date"}},
			Metrics:    []MetadataMetric{{APIName: "sessions", Type: "TYPE_INTEGER"}},
		})
	}))
	defer server.Close()

	meta, err := newTestClient(server).GetMetadata(context.Background(), "properties/123")
	require.NoError(t, err)
	assert.Equal(t, "properties/123/metadata", meta.Name)
	require.Len(t, meta.Dimensions, 1)
}

func TestReportRows(t *testing.T) {
	resp := sampleResponse()
	rows := resp.ReportRows()
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"date", "campaignName", "sessions"}, rows[0].Names())
	v, _ := rows[0].Get("campaignName")
	assert.Equal(t, "spring_sale", v)
	v, _ = rows[0].Get("sessions")
	assert.Equal(t, "42", v)
}

func TestSourceRunReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RunReportRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []Dimension{{Name: "date"}, {Name: "campaignName"}}, req.Dimensions)
		assert.Equal(t, []Metric{{Name: "sessions"}}, req.Metrics)
		json.NewEncoder(w).Encode(sampleResponse())
	}))
	defer server.Close()

	source := NewSource(newTestClient(server))
	rows, err := source.RunReport(context.Background(), "123", []string{"date", "campaignName"}, []string{"sessions"}, "2024-01-15", "2024-01-15")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	v, _ := rows[1].Get("campaignName")
	assert.Equal(t, "newsletter", v)
}
