package report

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bookkeeping columns present on every loaded row, in insert order.
const (
	ColumnID         = "id"
	ColumnSessionKey = "ga4_session_key"
	ColumnPropertyID = "property_id"
	ColumnDate       = "date"
	ColumnLastUpdate = "last_update"
)

// CleanPropertyID strips the vendor resource prefix from a property id:
// "properties/123456789" -> "123456789".
func CleanPropertyID(propertyID string) string {
	return strings.TrimPrefix(propertyID, "properties/")
}

// SessionKey derives the cross-table join key for one property and one
// partition date. Rows from different report tables extracted in the same
// run share it.
func SessionKey(propertyID, date string) string {
	return CleanPropertyID(propertyID) + "_" + date
}

// NormalizeReportDate converts the vendor's compact date dimension value
// ("20240115") into the canonical YYYY-MM-DD partition form. Values already
// in that form pass through; anything else is returned verbatim.
func NormalizeReportDate(v string) string {
	if len(v) == 8 {
		if t, err := time.Parse("20060102", v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

// Enrich returns a new row carrying the five bookkeeping fields ahead of the
// report fields: a fresh identity key, the session key, the property id, the
// partition date, and the ingestion timestamp. The partition date is the
// row's own date dimension when present, else fallbackDate (the query start
// date). The input row is not modified.
func Enrich(row Row, propertyID, fallbackDate string, now time.Time) Row {
	date := fallbackDate
	if v, ok := row.Get(ColumnDate); ok {
		if s, ok := v.(string); ok && s != "" {
			date = s
		}
	}

	prop := CleanPropertyID(propertyID)
	out := NewRow(row.Len() + 5)
	out.Set(ColumnID, uuid.New().String())
	out.Set(ColumnSessionKey, SessionKey(prop, date))
	out.Set(ColumnPropertyID, prop)
	out.Set(ColumnDate, date)
	out.Set(ColumnLastUpdate, now.UTC().Format(time.RFC3339))

	for i, name := range row.Names() {
		out.Set(name, row.Value(i))
	}
	return out
}
