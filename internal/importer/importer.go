// Package importer turns uploaded inventory spreadsheets into canonical
// medicine records: it resolves arbitrary header spellings onto a fixed
// schema and normalizes heterogeneous expiry dates to ISO form.
package importer

import (
	"errors"
	"io"
	"strings"
)

// ErrNoData reports a file with a header row but no data rows, or an
// entirely empty sheet.
var ErrNoData = errors.New("no data found in file")

// MissingColumnsError aborts an import whose header row lacks required
// columns. The whole file is rejected before any row is processed.
type MissingColumnsError struct {
	Labels []string
}

func (e *MissingColumnsError) Error() string {
	return "Missing required columns: " + strings.Join(e.Labels, ", ")
}

// ParseResult is the outcome of one import pass.
type ParseResult struct {
	Records []Record `json:"records"`
	Dropped int      `json:"dropped"`
}

// Parse decodes an uploaded spreadsheet or CSV and runs every row
// through column resolution and date normalization. Rows without a
// batch id or name are dropped silently and counted in Dropped.
func Parse(filename string, r io.Reader) (*ParseResult, error) {
	headers, rows, err := Decode(filename, r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	if missing := ValidateHeaders(headers); len(missing) > 0 {
		return nil, &MissingColumnsError{Labels: missing}
	}

	result := &ParseResult{Records: make([]Record, 0, len(rows))}
	for _, row := range rows {
		rec, ok := ExtractRow(row)
		if !ok {
			result.Dropped++
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}
