package report

// BaseColumns returns the five bookkeeping columns every report table starts
// with. The date column doubles as the day-partition column.
func BaseColumns() []ColumnSpec {
	return []ColumnSpec{
		{Name: ColumnID, Type: TypeString, Required: true, Description: "Unique row key (UUID)"},
		{Name: ColumnSessionKey, Type: TypeString, Required: true, Description: "Join key across report tables (property_id + date)"},
		{Name: ColumnPropertyID, Type: TypeString, Required: true, Description: "Analytics property id"},
		{Name: ColumnDate, Type: TypeDate, Required: true, Description: "Record date (partition column)"},
		{Name: ColumnLastUpdate, Type: TypeTimestamp, Required: true, Description: "Warehouse load timestamp"},
	}
}

// Columns builds the declared column list for a report spec: the base
// columns, then one nullable column per dimension and metric in catalog
// order. The "date" dimension folds into the base date column instead of
// repeating. Dimensions type as STRING; metrics as FLOAT or INTEGER per the
// catalog's metric typing.
func Columns(spec ReportSpec) []ColumnSpec {
	cols := BaseColumns()
	for _, d := range FilterCustomDimensions(spec.Dimensions) {
		name := Normalize(d)
		if name == ColumnDate {
			continue
		}
		cols = append(cols, ColumnSpec{Name: name, Type: TypeString})
	}
	for _, m := range spec.Metrics {
		cols = append(cols, ColumnSpec{Name: Normalize(m), Type: MetricType(m)})
	}
	return cols
}

// TableFor reconciles a report spec into a full table description, applying
// an optional table prefix. Declared typing always wins over inference.
func TableFor(spec ReportSpec, prefix string) TableSpec {
	return TableSpec{
		Name:            spec.TableName(prefix),
		Description:     spec.Description,
		Columns:         Columns(spec),
		PartitionColumn: ColumnDate,
		ClusterColumns:  []string{ColumnPropertyID, ColumnSessionKey},
	}
}

// InferColumns types a column list from one sample row. It exists for ad-hoc
// tables with no declared spec; sampling is inherently order-dependent, so
// declared schemas are always preferred. Typing: the date column -> DATE,
// the ingestion-timestamp column -> TIMESTAMP, then by the sample value's
// dynamic type (float64 -> FLOAT, int64 -> INTEGER, bool -> BOOLEAN,
// anything else -> STRING). A zero-field sample yields the base columns
// alone rather than an error.
func InferColumns(sample Row) []ColumnSpec {
	if sample.Len() == 0 {
		return BaseColumns()
	}
	cols := make([]ColumnSpec, 0, sample.Len())
	for i, name := range sample.Names() {
		cols = append(cols, ColumnSpec{Name: name, Type: inferType(name, sample.Value(i))})
	}
	return cols
}

func inferType(name string, v any) ColumnType {
	switch name {
	case ColumnDate:
		return TypeDate
	case ColumnLastUpdate:
		return TypeTimestamp
	}
	switch v.(type) {
	case float64:
		return TypeFloat
	case int64, int:
		return TypeInteger
	case bool:
		return TypeBoolean
	default:
		return TypeString
	}
}
