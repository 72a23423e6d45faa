package ga4

import (
	"context"

	"github.com/ignite/ga4-loader/internal/report"
)

// Source adapts the API client to the pipeline's fetch interface.
type Source struct {
	client *Client
}

// NewSource wraps an API client as a pipeline source.
func NewSource(client *Client) *Source {
	return &Source{client: client}
}

// RunReport fetches one report and returns its rows keyed by the vendor
// field names, values still strings.
func (s *Source) RunReport(ctx context.Context, propertyID string, dimensions, metrics []string, start, end string) ([]report.Row, error) {
	req := RunReportRequest{
		DateRanges: []DateRangeRequest{{StartDate: start, EndDate: end}},
		Dimensions: make([]Dimension, 0, len(dimensions)),
		Metrics:    make([]Metric, 0, len(metrics)),
	}
	for _, d := range dimensions {
		req.Dimensions = append(req.Dimensions, Dimension{Name: d})
	}
	for _, m := range metrics {
		req.Metrics = append(req.Metrics, Metric{Name: m})
	}

	resp, err := s.client.RunReport(ctx, propertyID, req)
	if err != nil {
		return nil, err
	}
	return resp.ReportRows(), nil
}
