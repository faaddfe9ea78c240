// Package analysis loads the cleaned activity CSV, filters it and computes summary statistics.
package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joshdurbin/activity-export/internal/table"
)

// TimestampColumns are re-parsed into time.Time on load
var TimestampColumns = []string{"start_time_local", "start_time_gmt", "begin_time"}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Load reads a cleaned activity CSV
func Load(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cleaned CSV: %w", err)
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses CSV with a header row. Each column takes the first type that
// fits all of its non-empty cells: int64, float64, bool, then string. Empty
// cells are null.
func ReadCSV(r io.Reader) (*table.Table, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(rows) == 0 {
		return table.New(0), nil
	}

	header := rows[0]
	body := rows[1:]

	cols := make([]*table.Column, len(header))
	for i, name := range header {
		raw := make([]string, len(body))
		for j, rec := range body {
			raw[j] = rec[i]
		}
		cols[i] = table.NewColumn(name, inferColumn(raw))
	}

	t, err := table.FromColumns(cols...)
	if err != nil {
		return nil, err
	}

	for _, name := range TimestampColumns {
		if c, ok := t.Column(name); ok {
			t = t.With(c.Map(name, parseTimestamp))
		}
	}
	return t, nil
}

func inferColumn(raw []string) []any {
	parsers := []func(string) (any, bool){parseInt, parseFloat, parseBool}

	for _, parse := range parsers {
		out, ok := parseAll(raw, parse)
		if ok {
			return out
		}
	}

	out := make([]any, len(raw))
	for i, s := range raw {
		if s != "" {
			out[i] = s
		}
	}
	return out
}

func parseAll(raw []string, parse func(string) (any, bool)) ([]any, bool) {
	out := make([]any, len(raw))
	for i, s := range raw {
		if s == "" {
			continue
		}
		v, ok := parse(s)
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseInt(s string) (any, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func parseFloat(s string) (any, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseBool(s string) (any, bool) {
	switch s {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return nil, false
}

// parseTimestamp turns a string cell into a UTC timestamp, or null when it cannot be parsed
func parseTimestamp(v any) any {
	s, ok := v.(string)
	if !ok {
		if ts, ok := v.(time.Time); ok {
			return ts
		}
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return nil
}
