package sqlite

import "time"

// timestampLayouts are the formats SQLite's strftime default can emit.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp parses a stored created_at value, returning the zero
// time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
