package ingest

import (
	"fmt"
	"strings"
	"time"
)

// strftimeToGo maps strftime directives to Go reference-time layout
// elements. Only the directives that appear in interchange time formats are
// covered.
var strftimeToGo = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'b': "Jan",
	'B': "January",
	'j': "002",
	'F': "2006-01-02",
	'%': "%",
}

// goLayout converts an strftime-style format into a Go time layout.
func goLayout(format string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			b.WriteByte(format[i])
			continue
		}
		i++
		if i == len(format) {
			return "", fmt.Errorf("time format %q ends with a bare %%", format)
		}
		repl, ok := strftimeToGo[format[i]]
		if !ok {
			return "", fmt.Errorf("unsupported directive %%%c in time format %q", format[i], format)
		}
		b.WriteString(repl)
	}
	return b.String(), nil
}

// matchesTimeFormat reports whether value parses completely against the
// strftime-style format, with no fallbacks. Column headers matching the time
// format are recognized as time columns in wide layout.
func matchesTimeFormat(value, format string) bool {
	layout, err := goLayout(format)
	if err != nil {
		return false
	}
	_, err = time.Parse(layout, value)
	return err == nil
}

// parseTime parses value against the strftime-style format. Long-layout time
// cells that do not match the format exactly are retried against a few
// common date layouts, since input files frequently carry full dates with a
// coarser time_format.
func parseTime(value, format string) (time.Time, error) {
	layout, err := goLayout(format)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(layout, value)
	if err == nil {
		return t, nil
	}
	for _, fallback := range []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339, "2006/01/02", "01/02/2006"} {
		if fallback == layout {
			continue
		}
		if t, ferr := time.Parse(fallback, value); ferr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// formatTime renders t using the strftime-style format.
func formatTime(t time.Time, format string) (string, error) {
	layout, err := goLayout(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}
