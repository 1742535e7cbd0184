// backend/scraper/records.go
package scraper

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// ParseDelimited reads comma-separated tabular text with a header row and
// returns the inferred column names plus one map per data row. Values that
// look numeric are coerced to numbers; everything else stays a string.
// Column schemas vary per dataset, so rows are maps rather than structs.
func ParseDelimited(r io.Reader) (columns []string, records []map[string]interface{}, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF"))
		if col == "" {
			col = fmt.Sprintf("column_%d", i+1)
		}
		columns = append(columns, col)
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A handful of malformed rows should not discard the rest of
			// the file.
			log.Printf("WARN Scraper: Skipping malformed CSV row: %v", err)
			continue
		}
		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				record[col] = ""
				continue
			}
			record[col] = coerceValue(strings.TrimSpace(row[i]))
		}
		records = append(records, record)
	}
	return columns, records, nil
}

// coerceValue turns numeric-looking strings into numbers so downstream
// chart consumers get usable values.
func coerceValue(v string) interface{} {
	if v == "" {
		return ""
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// EstimateRecordCount extrapolates a row count from the newline density of
// the first chunk of a tabular resource and its total content length. One
// line is subtracted for the header row. Chunks without a single newline
// yield zero rather than a guess.
func EstimateRecordCount(chunk []byte, totalLength int64) int64 {
	if len(chunk) == 0 || totalLength <= 0 {
		return 0
	}
	lines := int64(bytes.Count(chunk, []byte{'\n'}))
	if lines == 0 {
		return 0
	}
	estimated := lines * totalLength / int64(len(chunk))
	if estimated > 0 {
		estimated-- // header row
	}
	return estimated
}
