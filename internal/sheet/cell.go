package sheet

import (
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Cell.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "empty"
	}
}

// Cell is one spreadsheet value: text, number, date, or empty.
type Cell struct {
	kind Kind
	text string
	num  float64
	date time.Time
}

// Empty returns the empty cell.
func Empty() Cell {
	return Cell{}
}

// Text returns a text cell; whitespace-only text is empty.
func Text(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{kind: KindText, text: s}
}

// Number returns a numeric cell.
func Number(f float64) Cell {
	return Cell{kind: KindNumber, num: f}
}

// Date returns a date/time cell.
func Date(t time.Time) Cell {
	return Cell{kind: KindDate, date: t}
}

// Kind reports the variant.
func (c Cell) Kind() Kind {
	return c.kind
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.kind == KindEmpty
}

// AsText returns the trimmed text of a text cell.
func (c Cell) AsText() (string, bool) {
	if c.kind != KindText {
		return "", false
	}
	return strings.TrimSpace(c.text), true
}

// AsNumber returns the value of a number cell.
func (c Cell) AsNumber() (float64, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.num, true
}

// AsDate returns the value of a date cell.
func (c Cell) AsDate() (time.Time, bool) {
	if c.kind != KindDate {
		return time.Time{}, false
	}
	return c.date, true
}

// String renders the cell for comparisons and messages: trimmed text, numbers
// without a trailing ".0", dates as "2006-01-02 15:04:05", empty as "".
func (c Cell) String() string {
	switch c.kind {
	case KindText:
		return strings.TrimSpace(c.text)
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindDate:
		return c.date.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}
