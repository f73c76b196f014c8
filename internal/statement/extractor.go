package statement

import (
	"strconv"
	"strings"
)

// Column positions of the Kaspi Business statement export.
const (
	colDocNumber   = 0
	colDate        = 1
	colDebit       = 2
	colCredit      = 3
	colBeneficiary = 4
	colAccount     = 5
	colBIK         = 6
	colKNP         = 7
	colPurpose     = 8
)

// Options control how the extractor locates statement data.
type Options struct {
	// HeaderScanRows bounds the search for the header row.
	HeaderScanRows int
	// FallbackDataRow is the data start used when no header row is found.
	// The first ~11 rows of this bank's export are account metadata; the
	// value is per-bank and overridable, and callers should log when the
	// fallback is actually taken so format drift gets noticed.
	FallbackDataRow int
}

// DefaultOptions returns the extractor defaults for the Kaspi export format.
func DefaultOptions() Options {
	return Options{HeaderScanRows: 20, FallbackDataRow: 11}
}

// RawRow is one qualifying data row of the statement grid, position-addressed.
type RawRow []any

// String returns cell i as a string, empty when absent. Numeric cells are
// re-rendered without an exponent so codes like KNP survive round-tripping.
func (r RawRow) String(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	switch v := r[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Number returns cell i as a number, 0 when absent or non-numeric.
func (r RawRow) Number(i int) float64 {
	if i < 0 || i >= len(r) {
		return 0
	}
	if v, ok := r[i].(float64); ok {
		return v
	}
	return 0
}

// Extract scans a worksheet grid and yields the qualifying transaction rows.
// It reports whether the positional fallback was used in place of a located
// header row. The input grid is not mutated; zero qualifying rows is a valid
// result, not an error.
func (o Options) Extract(grid [][]any) ([]RawRow, bool) {
	scan := o.HeaderScanRows
	if scan <= 0 {
		scan = DefaultOptions().HeaderScanRows
	}
	if scan > len(grid) {
		scan = len(grid)
	}

	// The header row carries the debit column label; data starts just below it.
	headerIdx := -1
	for i := 0; i < scan; i++ {
		cell := RawRow(grid[i]).String(colDebit)
		if strings.Contains(strings.ToLower(cell), "дебет") {
			headerIdx = i
			break
		}
	}
	fallback := headerIdx < 0
	start := headerIdx + 1
	if fallback {
		start = o.FallbackDataRow
		if start <= 0 {
			start = DefaultOptions().FallbackDataRow
		}
	}

	var out []RawRow
	for i := start; i < len(grid); i++ {
		row := RawRow(grid[i])
		if isIndexRuler(row) || isSubtotal(row) {
			continue
		}
		// Rows with neither a positive debit nor credit are metadata.
		if row.Number(colDebit) <= 0 && row.Number(colCredit) <= 0 {
			continue
		}
		out = append(out, row)
	}
	return out, fallback
}

// isIndexRuler detects the 1,2,3,... column-numbering row some export tools
// insert after the header.
func isIndexRuler(row RawRow) bool {
	return row.Number(0) == 1 && row.Number(1) == 2 && row.Number(2) == 3
}

// isSubtotal detects "Итого ..." summary rows.
func isSubtotal(row RawRow) bool {
	cell, ok := cellAsString(row, colDate)
	if !ok {
		return false
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(cell)), "итого")
}

func cellAsString(row RawRow, i int) (string, bool) {
	if i < 0 || i >= len(row) {
		return "", false
	}
	s, ok := row[i].(string)
	return s, ok
}
