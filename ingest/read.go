package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/openemissions/ghgdata/interchange"
)

// NAValues are the tokens recognized as missing values in input CSVs.
var NAValues = []string{
	"nan",
	"NE",
	"-",
	"NA, NE",
	"NO,NE",
	"NA,NE",
	"NE,NO",
	"NE0",
	"NO, NE",
}

func isNA(s string) bool {
	for _, na := range NAValues {
		if s == na {
			return true
		}
	}
	return false
}

// numericRegex validates a numeric cell after cleanup: integers, decimals
// and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// parseNumeric coerces a data cell to float64. It handles accounting-style
// negatives, currency symbols and thousands separators, validates the
// cleaned string, and scans it through pgtype.Numeric. ok is false for
// missing or unparsable cells.
func parseNumeric(s string) (v float64, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || isNA(s) {
		return math.NaN(), false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return math.NaN(), false
	}
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return math.NaN(), false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return math.NaN(), false
	}
	return f.Float64, true
}

// readRecords reads the whole CSV: header plus data rows. Short rows are
// padded so ragged files do not panic downstream.
func readRecords(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("CSV input is empty")
	}
	header = records[0]
	rows = records[1:]
	for i, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows[i] = row
	}
	return header, rows, nil
}

// readWideCSV reads a wide-layout CSV into an unconverted table: time
// columns (given or detected via the time format) are numeric-coerced,
// columns outside the specification are dropped, and missing specified
// columns are an error. It returns the table and the time column names.
func readWideCSV(r io.Reader, spec *Spec) (*interchange.Table, []string, error) {
	header, rows, err := readRecords(r)
	if err != nil {
		return nil, nil, err
	}

	timeCols := spec.TimeCols
	if len(timeCols) == 0 {
		for _, col := range header {
			if matchesTimeFormat(col, spec.TimeFormat) {
				timeCols = append(timeCols, col)
			}
		}
	}
	isTime := map[string]bool{}
	for _, col := range timeCols {
		isTime[col] = true
	}

	keep := map[string]bool{}
	for _, col := range spec.CoordsCols {
		keep[col] = true
	}
	for _, ac := range spec.AddCoordsCols {
		keep[ac.Column] = true
	}

	t := interchange.NewTable()
	seen := map[string]bool{}
	for i, col := range header {
		if !keep[col] && !isTime[col] {
			continue
		}
		seen[col] = true
		if isTime[col] {
			vals := make([]float64, len(rows))
			for j, row := range rows {
				vals[j], _ = parseNumeric(row[i])
			}
			if err := t.AddColumn(&interchange.Column{Name: col, Num: vals}); err != nil {
				return nil, nil, err
			}
		} else {
			vals := make([]string, len(rows))
			for j, row := range rows {
				vals[j] = metaCell(row[i])
			}
			if err := t.AddColumn(&interchange.Column{Name: col, Str: vals}); err != nil {
				return nil, nil, err
			}
		}
	}

	var missing []string
	for _, col := range spec.CoordsCols {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		slog.Error("columns specified in coords_cols not found in CSV", "columns", missing)
		return nil, nil, fmt.Errorf("columns %v not found in CSV", missing)
	}
	return t, timeCols, nil
}

// readLongCSV reads a long-layout CSV into an unconverted table: only the
// declared coordinate, auxiliary and data columns are read; the data column
// is numeric-coerced.
func readLongCSV(r io.Reader, spec *Spec) (*interchange.Table, error) {
	dataCol, ok := spec.CoordsCols["data"]
	if !ok {
		return nil, fmt.Errorf("no data column in the CSV specified in coords_cols, so nothing to read")
	}
	header, rows, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	keep := map[string]bool{}
	for _, col := range spec.CoordsCols {
		keep[col] = true
	}
	for _, ac := range spec.AddCoordsCols {
		keep[ac.Column] = true
	}

	t := interchange.NewTable()
	seen := map[string]bool{}
	for i, col := range header {
		if !keep[col] {
			continue
		}
		seen[col] = true
		if col == dataCol {
			vals := make([]float64, len(rows))
			for j, row := range rows {
				vals[j], _ = parseNumeric(row[i])
			}
			if err := t.AddColumn(&interchange.Column{Name: col, Num: vals}); err != nil {
				return nil, err
			}
		} else {
			vals := make([]string, len(rows))
			for j, row := range rows {
				vals[j] = metaCell(row[i])
			}
			if err := t.AddColumn(&interchange.Column{Name: col, Str: vals}); err != nil {
				return nil, err
			}
		}
	}

	var missing []string
	for _, col := range spec.CoordsCols {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		slog.Error("columns specified in coords_cols not found in CSV", "columns", missing)
		return nil, fmt.Errorf("columns %v not found in CSV", missing)
	}
	return t, nil
}

// metaCell normalizes a metadata cell: surrounding whitespace is trimmed and
// missing-value tokens map to the empty string.
func metaCell(s string) string {
	s = strings.TrimSpace(s)
	if isNA(s) {
		return ""
	}
	return s
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, nil
}
