package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	selectRe = regexp.MustCompile(`(?is)^\s*select\b`)
	limitRe  = regexp.MustCompile(`(?i)\blimit\s+\d+\b`)
)

// CheckSelect is the conservative SQL safety guard: it rejects empty input,
// multi-statement input, and anything that is not a single SELECT. Trailing
// semicolons are tolerated. Errors wrap ErrValidation and no network call is
// made on rejection.
func CheckSelect(sql string) error {
	trimmed := stripTrailing(sql)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", ErrValidation)
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("%w: multiple statements are not allowed", ErrValidation)
	}
	if !selectRe.MatchString(trimmed) {
		return fmt.Errorf("%w: only SELECT statements are allowed", ErrValidation)
	}
	return nil
}

// EnsureLimit appends a LIMIT clause when the statement has none. Statements
// that already carry a LIMIT are returned unchanged; result paging still
// bounds what the caller reads.
func EnsureLimit(sql string, limit int) string {
	if limitRe.MatchString(sql) {
		return sql
	}
	return fmt.Sprintf("%s LIMIT %d", stripTrailing(sql), limit)
}

// QuoteIdentifier renders a catalog path as a quoted, dot-qualified SQL
// identifier. Each segment is wrapped in double quotes with embedded double
// quotes doubled.
func QuoteIdentifier(path []string) string {
	parts := make([]string, len(path))
	for i, seg := range path {
		parts[i] = `"` + strings.ReplaceAll(seg, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// stripTrailing removes surrounding whitespace and trailing semicolons.
func stripTrailing(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\r\n")
}
