package report

import (
	"strconv"
	"strings"
)

// CoerceMetric converts a metric value from the vendor's string form into a
// typed value: values containing a '.' parse as float64, everything else as
// int64, and anything unparseable is kept verbatim as a string. It never
// fails; "N/A" and friends simply stay strings.
func CoerceMetric(raw string) any {
	if strings.Contains(raw, ".") {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}
