package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrLegacyXLS rejects the BIFF .xls format, which the workbook reader
// cannot open.
var ErrLegacyXLS = errors.New("legacy .xls files are not supported, please convert to .xlsx or CSV")

// Decode reads an uploaded .xlsx or CSV file into the header row and a
// list of raw rows keyed by header text as authored. Duplicate headers
// keep the first column, matching spreadsheet column semantics. Blank
// rows are skipped.
func Decode(filename string, r io.Reader) ([]string, []map[string]any, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return decodeXLSX(r)
	case strings.HasSuffix(name, ".xls"):
		return nil, nil, ErrLegacyXLS
	}
	return decodeCSV(r)
}

func decodeXLSX(r io.Reader) ([]string, []map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return assemble(rows)
}

func decodeCSV(r io.Reader) ([]string, []map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return assemble(rows)
}

func assemble(rows [][]string) ([]string, []map[string]any, error) {
	if len(rows) == 0 {
		return nil, nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	var out []map[string]any
	for _, row := range rows[1:] {
		record := make(map[string]any, len(headers))
		blank := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			if _, seen := record[header]; seen {
				continue
			}
			val := ""
			if i < len(row) {
				val = row[i]
			}
			if strings.TrimSpace(val) != "" {
				blank = false
			}
			record[header] = val
		}
		if blank {
			continue
		}
		out = append(out, record)
	}
	return headers, out, nil
}
