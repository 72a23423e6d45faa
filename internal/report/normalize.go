package report

import (
	"regexp"
	"strings"
)

// Pre-compiled boundary patterns for vendor field-name normalization.
var (
	// acronymBoundaryRe splits an uppercase run from the word it starts:
	// "GAClientId" -> "GA_ClientId".
	acronymBoundaryRe = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	// caseBoundaryRe splits a lowercase letter or digit from a following
	// uppercase letter: "sessionId" -> "session_Id".
	caseBoundaryRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// Normalize converts a vendor camelCase field name into the snake_case column
// naming the warehouse tables use. It is pure, total, and idempotent:
// already-normalized names pass through unchanged.
func Normalize(name string) string {
	s := acronymBoundaryRe.ReplaceAllString(name, "${1}_${2}")
	s = caseBoundaryRe.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}

// NormalizeAll maps Normalize over a name list, preserving order.
func NormalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Normalize(n)
	}
	return out
}

// FilterCustomDimensions drops names using the vendor's scoped custom-field
// syntax (a ':' in the name, e.g. "customEvent:plan_tier"). Those fields have
// no stable column mapping, so they are excluded from the request entirely
// rather than normalized. Order of the surviving names is preserved.
func FilterCustomDimensions(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.Contains(n, ":") {
			continue
		}
		out = append(out, n)
	}
	return out
}
