package pipeline

import (
	"github.com/ignite/ga4-loader/internal/report"
)

// Outcome is the structured result of one report-key run. Errors are carried
// here instead of being raised, so a batch can keep going after any one key
// fails.
type Outcome struct {
	Key           string           `json:"key"`
	Status        report.Status    `json:"status"`
	Message       string           `json:"message,omitempty"`
	ErrorKind     report.Kind      `json:"error_kind,omitempty"`
	Table         string           `json:"table,omitempty"`
	RowsExtracted int              `json:"rows_extracted"`
	RowsInserted  int              `json:"rows_inserted"`
	Period        report.DateRange `json:"period"`
	PropertyID    string           `json:"property_id,omitempty"`
}

// OK reports whether the run loaded (success) or had nothing to load
// (warning). Warnings count as successes in batch summaries.
func (o Outcome) OK() bool {
	return o.Status == report.StatusSuccess || o.Status == report.StatusWarning
}

func errorOutcome(key, property string, period report.DateRange, err *report.Error) Outcome {
	return Outcome{
		Key:        key,
		Status:     report.StatusError,
		Message:    err.Error(),
		ErrorKind:  err.Kind,
		Period:     period,
		PropertyID: property,
	}
}

// Summary aggregates a batch of outcomes.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	TotalRows  int `json:"total_rows"`
}

// BatchResult is what one runAllReports invocation produces: an outcome for
// every attempted key, in catalog order, plus the totals.
type BatchResult struct {
	PropertyID string           `json:"property_id"`
	Period     report.DateRange `json:"period"`
	Outcomes   []Outcome        `json:"outcomes"`
	Summary    Summary          `json:"summary"`
}

// Outcome returns the outcome for a report key, if that key was attempted.
func (b BatchResult) Outcome(key string) (Outcome, bool) {
	for _, o := range b.Outcomes {
		if o.Key == key {
			return o, true
		}
	}
	return Outcome{}, false
}

func summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.OK() {
			s.Successful++
			s.TotalRows += o.RowsInserted
		} else {
			s.Failed++
		}
	}
	return s
}
