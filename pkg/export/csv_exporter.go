package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Sheet is one named table of an export.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders a Sheet as CSV. Output starts with a UTF-8 BOM so spreadsheet tools keep accents.
type CSVExporter struct {
	Comma rune
}

// NewCSVExporter builds a CSV exporter using sep as field delimiter (',' when zero).
func NewCSVExporter(sep rune) *CSVExporter {
	if sep == 0 {
		sep = ','
	}
	return &CSVExporter{Comma: sep}
}

// Render produces CSV encoded bytes for the sheet. Short rows are padded, long rows truncated.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	if len(sheet.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	buf.Write(utf8BOM)
	writer := csv.NewWriter(buf)
	writer.Comma = e.Comma
	if err := writer.Write(sheet.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(sheet.Headers))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
