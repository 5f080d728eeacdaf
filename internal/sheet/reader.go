package sheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Reader turns the first worksheet of a workbook into a Table.
type Reader struct{}

// NewReader constructs a Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadFile opens path with excelize and parses its first sheet.
func (r *Reader) ReadFile(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return r.parse(f)
}

// Read parses a workbook streamed from src.
func (r *Reader) Read(src io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return r.parse(f)
}

func (r *Reader) parse(f *excelize.File) (*Table, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	name := sheets[0]

	formatted, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(formatted) == 0 {
		return NewTable(nil, nil), nil
	}

	header := formatted[0]
	conv := &cellConverter{file: f, sheet: name, dateStyles: map[int]bool{}}
	rows := make([][]Cell, 0, len(formatted)-1)
	for i := 1; i < len(formatted); i++ {
		var rawRow []string
		if i < len(raw) {
			rawRow = raw[i]
		}
		cells := make([]Cell, len(header))
		for col := range header {
			cells[col] = conv.convert(col, i, valueAt(formatted[i], col), valueAt(rawRow, col))
		}
		rows = append(rows, cells)
	}

	for len(rows) > 0 && allEmpty(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return NewTable(header, rows), nil
}

type cellConverter struct {
	file       *excelize.File
	sheet      string
	dateStyles map[int]bool
}

// convert maps zero-based (col, row) of a data cell to a Cell; row 0 is the header.
func (c *cellConverter) convert(col, row int, formatted, raw string) Cell {
	if strings.TrimSpace(raw) == "" && strings.TrimSpace(formatted) == "" {
		return Empty()
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return Text(formatted)
	}
	typ, err := c.file.GetCellType(c.sheet, axis)
	if err != nil {
		return Text(formatted)
	}

	switch typ {
	case excelize.CellTypeBool:
		if raw == "1" {
			return Text("TRUE")
		}
		return Text("FALSE")
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return Date(t)
		}
		return Text(formatted)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return Text(formatted)
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Text(formatted)
	}
	if c.isDateStyled(axis) {
		if t, err := excelize.ExcelDateToTime(num, false); err == nil {
			return Date(t)
		}
	}
	return Number(num)
}

func (c *cellConverter) isDateStyled(axis string) bool {
	styleID, err := c.file.GetCellStyle(c.sheet, axis)
	if err != nil || styleID == 0 {
		return false
	}
	if cached, ok := c.dateStyles[styleID]; ok {
		return cached
	}
	isDate := false
	if style, err := c.file.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			isDate = isDateFormatCode(*style.CustomNumFmt)
		} else {
			isDate = isBuiltinDateFormat(style.NumFmt)
		}
	}
	c.dateStyles[styleID] = isDate
	return isDate
}

func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	default:
		return false
	}
}

// isDateFormatCode spots date/time tokens in a custom format, ignoring quoted and bracketed
// sections. Elapsed-time brackets such as [h], [mm] or [ss] count as time tokens.
func isDateFormatCode(code string) bool {
	var b, bracket strings.Builder
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
			bracket.Reset()
		case r == ']':
			inBracket = false
			if isElapsedToken(bracket.String()) {
				return true
			}
		case inBracket:
			bracket.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "ydhs")
}

func isElapsedToken(s string) bool {
	if s == "" {
		return false
	}
	return strings.Trim(s, string(s[0])) == "" && strings.ContainsRune("hms", rune(s[0]))
}

func valueAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func allEmpty(cells []Cell) bool {
	for _, c := range cells {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
