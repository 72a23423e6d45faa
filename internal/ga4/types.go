package ga4

// Wire types for the Analytics Data API v1beta REST surface. Only the fields
// the loader reads are declared; the API tolerates the rest being absent.

// Dimension names one requested dimension.
type Dimension struct {
	Name string `json:"name"`
}

// Metric names one requested metric.
type Metric struct {
	Name string `json:"name"`
}

// DateRangeRequest is one inclusive date window, YYYY-MM-DD bounds.
type DateRangeRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// RunReportRequest is the body of a properties/{id}:runReport call.
type RunReportRequest struct {
	DateRanges []DateRangeRequest `json:"dateRanges,omitempty"`
	Dimensions []Dimension        `json:"dimensions,omitempty"`
	Metrics    []Metric           `json:"metrics,omitempty"`
	Limit      int64              `json:"limit,omitempty,string"`
}

// BatchRunReportsRequest wraps up to five report requests in one call.
type BatchRunReportsRequest struct {
	Requests []RunReportRequest `json:"requests"`
}

// RunRealtimeReportRequest is the body of a :runRealtimeReport call. Realtime
// has no date range; the API fixes the window to the last 30 minutes.
type RunRealtimeReportRequest struct {
	Dimensions []Dimension `json:"dimensions,omitempty"`
	Metrics    []Metric    `json:"metrics,omitempty"`
	Limit      int64       `json:"limit,omitempty,string"`
}

// HeaderValue is one cell of a response row. Every value arrives as a string
// regardless of the metric's declared type.
type HeaderValue struct {
	Value string `json:"value"`
}

// DimensionHeader names a dimension column of the response.
type DimensionHeader struct {
	Name string `json:"name"`
}

// MetricHeader names a metric column and its declared type.
type MetricHeader struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ReportRow is one row of a report response.
type ReportRow struct {
	DimensionValues []HeaderValue `json:"dimensionValues"`
	MetricValues    []HeaderValue `json:"metricValues"`
}

// RunReportResponse is the body of a runReport / runRealtimeReport response.
type RunReportResponse struct {
	DimensionHeaders []DimensionHeader `json:"dimensionHeaders"`
	MetricHeaders    []MetricHeader    `json:"metricHeaders"`
	Rows             []ReportRow       `json:"rows"`
	RowCount         int               `json:"rowCount"`
}

// BatchRunReportsResponse wraps the per-request reports of a batch call.
type BatchRunReportsResponse struct {
	Reports []RunReportResponse `json:"reports"`
}

// MetadataDimension describes one dimension the property supports.
type MetadataDimension struct {
	APIName     string `json:"apiName"`
	UIName      string `json:"uiName"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// MetadataMetric describes one metric the property supports.
type MetadataMetric struct {
	APIName     string `json:"apiName"`
	UIName      string `json:"uiName"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Category    string `json:"category"`
}

// Metadata is the properties/{id}/metadata response.
type Metadata struct {
	Name       string              `json:"name"`
	Dimensions []MetadataDimension `json:"dimensions"`
	Metrics    []MetadataMetric    `json:"metrics"`
}

// apiError is the Google error envelope on non-2xx responses.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
