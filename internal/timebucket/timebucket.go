// Package timebucket resolves client-supplied timestamp strings into the
// canonical time buckets that address pending security event bundles.
package timebucket

import (
	"strings"
	"time"
)

// Accepted layouts: RFC 3339-like date-times with an explicit numeric UTC
// offset. The "Z" shorthand is not part of the profile and is rejected.
var (
	layouts = []string{
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05-0700",
	}
	fractionalLayouts = []string{
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-0700",
	}
)

// Parse resolves a raw timestamp query value into a time bucket. Malformed
// input and the empty string both yield ok == false; parsing failures are
// never surfaced as errors.
func Parse(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	// Offsets must be numeric; "Z" is not accepted by the profile.
	if strings.Contains(raw, "Z") || strings.Contains(raw, "z") {
		return time.Time{}, false
	}

	candidates := layouts
	if strings.Contains(raw, ".") {
		candidates = fractionalLayouts
	}

	for _, layout := range candidates {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Key returns the canonical bucket key for a resolved time bucket. Events
// are batched per minute, so the key truncates to minute precision in UTC.
// The same key addresses both the live event store and archived bundles.
func Key(t time.Time) string {
	return t.UTC().Format("20060102T1504Z")
}
