package pipeline

import (
	"context"

	"github.com/ignite/ga4-loader/internal/pkg/logger"
	"github.com/ignite/ga4-loader/internal/report"
)

// RunAll runs every requested report key against one property, sharing a
// single date range so all tables land the same partition. An empty keys
// slice means the full catalog, in catalog order. One key failing never
// stops the rest; an auth failure is the one exception, because every
// remaining key would fail the same way.
func (p *Pipeline) RunAll(ctx context.Context, propertyID string, keys []string, start, end string) BatchResult {
	period := p.resolveRange(start, end)
	property := report.CleanPropertyID(propertyID)

	if len(keys) == 0 {
		keys = p.catalog.Keys()
	}

	outcomes := make([]Outcome, 0, len(keys))
	var authFailed *Outcome
	for _, key := range keys {
		if authFailed != nil {
			skipped := Outcome{
				Key:        key,
				Status:     report.StatusError,
				Message:    "skipped: " + authFailed.Message,
				ErrorKind:  report.KindAuth,
				Period:     period,
				PropertyID: property,
			}
			outcomes = append(outcomes, skipped)
			continue
		}

		out := p.Run(ctx, propertyID, key, period.Start, period.End)
		outcomes = append(outcomes, out)
		if out.ErrorKind == report.KindAuth {
			logger.Error("auth failure, skipping remaining reports", "report", key, "property_id", property)
			authFailed = &out
		}
	}

	return BatchResult{
		PropertyID: property,
		Period:     period,
		Outcomes:   outcomes,
		Summary:    summarize(outcomes),
	}
}

// RunBatch runs the requested keys against each property in turn. Properties
// are isolated from each other: a failure, auth included, on one property
// never skips the next property's runs.
func (p *Pipeline) RunBatch(ctx context.Context, propertyIDs []string, keys []string, start, end string) []BatchResult {
	results := make([]BatchResult, 0, len(propertyIDs))
	for _, id := range propertyIDs {
		results = append(results, p.RunAll(ctx, id, keys, start, end))
	}
	return results
}
