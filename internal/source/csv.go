package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

// timestampLayouts are tried in order when parsing record timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// CSVSource reads raw records from a flat file with a header row. The
// timestamp column is required; category, agent, and value are optional.
// Rows with an unparsable timestamp are passed through with a zero timestamp
// so the aggregator can report them as defects instead of losing them
// silently.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a source reading from path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

// Fetch reads the whole file. The window hint is ignored; a flat file is
// already scoped by whoever produced it, and the dispatcher filters by
// period regardless.
func (s *CSVSource) Fetch(ctx context.Context, _ Window) ([]models.RawRecord, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening record source: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading record source %s: %w", s.Path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx := map[string]int{}
	for i, name := range rows[0] {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := idx["timestamp"]; !ok {
		return nil, fmt.Errorf("record source %s: missing required column: timestamp", s.Path)
	}

	get := func(row []string, key string) string {
		pos, ok := idx[key]
		if !ok || pos >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[pos])
	}

	var records []models.RawRecord
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		rec := models.RawRecord{
			Ref:      fmt.Sprintf("line %d", i+2),
			Category: get(row, "category"),
			Agent:    get(row, "agent"),
		}

		if ts, err := parseTimestamp(get(row, "timestamp")); err == nil {
			rec.Timestamp = ts
		}

		if raw := get(row, "value"); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				rec.Value = &v
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", value)
}
