package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Parse reads comma separated text whose first non-blank record is the header
// line. Empty or whitespace-only text yields an empty dataset, not an error.
func Parse(text string) (*Parsed, error) {
	return ParseReader(strings.NewReader(text))
}

func ParseReader(r io.Reader) (*Parsed, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	ds := &Parsed{Headers: []string{}, Rows: []Row{}}

	var header []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return ds, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv header: %w", err)
		}
		if !blank(record) {
			header = record
			break
		}
	}
	for _, h := range header {
		ds.Headers = append(ds.Headers, strings.TrimSpace(h))
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", len(ds.Rows)+2, err)
		}
		if blank(record) {
			continue
		}
		row := make(Row, len(ds.Headers))
		for i, h := range ds.Headers {
			if i >= len(record) {
				break
			}
			row[h] = parseCell(record[i])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// blank reports whether every field of record is empty after trimming.
func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return Number(v)
	}
	return Text(s)
}
