// Package tabular turns raw file buffers into header lists and field-keyed
// rows, abstracting over delimited-text and spreadsheet encodings.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrNoDataRows           = errors.New("file contains no data rows")
)

// Row maps a header to the raw cell value. Empty cells are stored as nil so
// downstream coercion can distinguish absence from an empty string.
type Row map[string]any

// Table is the parsed form of one uploaded file.
type Table struct {
	Headers []string
	Rows    []Row
}

// Parse dispatches on the filename extension. Spreadsheet cells that look
// numeric are kept as raw numbers so date serials survive to the adapters.
func Parse(buf []byte, filename string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return parseDelimited(buf, ',')
	case ".tsv":
		return parseDelimited(buf, '\t')
	case ".xlsx", ".xlsm":
		return parseSpreadsheet(buf)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, filepath.Ext(filename))
	}
}

func parseDelimited(buf []byte, comma rune) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(buf))
	reader.Comma = comma

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited file: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrNoDataRows
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			if i >= len(record) {
				row[header] = nil
				continue
			}
			row[header] = cellValue(record[i], false)
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// cellValue normalizes one raw cell. numeric=true additionally converts
// number-looking text to float64, which the spreadsheet path relies on to
// hand date serials through as numbers.
func cellValue(raw string, numeric bool) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if numeric {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return parsed
		}
	}
	return raw
}
