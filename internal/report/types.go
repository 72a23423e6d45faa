package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ColumnType is the closed set of warehouse column types the loader emits.
type ColumnType string

const (
	TypeString    ColumnType = "STRING"
	TypeInteger   ColumnType = "INTEGER"
	TypeFloat     ColumnType = "FLOAT"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeDate      ColumnType = "DATE"
	TypeTimestamp ColumnType = "TIMESTAMP"
)

// Status discriminates load outcomes across the HTTP and CLI boundaries.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// ReportSpec describes one extractable report: the warehouse table it feeds
// and the vendor dimension/metric names requested from the analytics API.
// Dimension and metric names are in the vendor's camelCase form; Normalize
// maps them to column names. Specs are immutable once the catalog is built.
type ReportSpec struct {
	Key         string   `json:"key"`
	Table       string   `json:"table"`
	Description string   `json:"description"`
	Dimensions  []string `json:"dimensions"`
	Metrics     []string `json:"metrics"`
}

// TableName returns the destination table, applying an optional prefix.
func (s ReportSpec) TableName(prefix string) string {
	if prefix == "" {
		return s.Table
	}
	return prefix + "_" + s.Table
}

// ColumnSpec is one column of a destination table.
type ColumnSpec struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required"`
	Description string     `json:"description,omitempty"`
}

// TableSpec is the full shape of a destination table: ordered columns, the
// day-partition column, and the clustering columns the warehouse should use.
type TableSpec struct {
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Columns         []ColumnSpec `json:"columns"`
	PartitionColumn string       `json:"partition_column"`
	ClusterColumns  []string     `json:"cluster_columns,omitempty"`
}

// Column returns the spec for a named column, if declared.
func (t TableSpec) Column(name string) (ColumnSpec, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSpec{}, false
}

// DateRange is an inclusive extraction window. Both bounds are YYYY-MM-DD.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Row is one extracted record: an ordered list of column/value pairs with
// constant-time lookup by name. Values are one of string, int64, float64,
// bool, or nil. Rows replace the source system's free-form maps so that
// column order is stable from extraction through insert.
type Row struct {
	names  []string
	values []any
	index  map[string]int
}

// NewRow returns an empty row sized for n fields.
func NewRow(n int) Row {
	return Row{
		names:  make([]string, 0, n),
		values: make([]any, 0, n),
		index:  make(map[string]int, n),
	}
}

// Set appends the field, or replaces its value if the name is already present.
func (r *Row) Set(name string, value any) {
	if i, ok := r.index[name]; ok {
		r.values[i] = value
		return
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
	r.values = append(r.values, value)
}

// Get returns the value for name and whether the field exists.
func (r Row) Get(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Names returns the field names in insertion order. The caller must not
// modify the returned slice.
func (r Row) Names() []string { return r.names }

// Value returns the value at position i.
func (r Row) Value(i int) any { return r.values[i] }

// Len returns the number of fields.
func (r Row) Len() int { return len(r.names) }

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := NewRow(r.Len())
	for i, name := range r.names {
		out.Set(name, r.values[i])
	}
	return out
}

// MarshalJSON renders the row as a JSON object preserving field order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("marshaling field %s: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExtractionResult is what one fetch+transform produces for a report key.
// It lives only for the duration of a pipeline run.
type ExtractionResult struct {
	Key         string    `json:"key"`
	Table       string    `json:"table"`
	Description string    `json:"description"`
	RowCount    int       `json:"row_count"`
	Rows        []Row     `json:"-"`
	Period      DateRange `json:"period"`
	PropertyID  string    `json:"property_id"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// LoadResult is the sink's verdict for one report key.
type LoadResult struct {
	Status       Status `json:"status"`
	Message      string `json:"message"`
	Table        string `json:"table"`
	RowsInserted int    `json:"rows_inserted"`
}
