// Package timeparse reads the loosely formatted dates and times found in exam spreadsheets.
package timeparse

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/sheet"
)

// Layout is a named Go time layout tried by the parsers.
type Layout struct {
	Name   string
	Layout string
}

// NativeLayout names results taken directly from a spreadsheet date cell.
const NativeLayout = "native"

// TimeLayouts are tried in order for time-of-day columns.
var TimeLayouts = []Layout{
	{Name: "datetime_dmy", Layout: "02/01/2006 15:04:05"},
	{Name: "datetime_iso", Layout: "2006-01-02 15:04:05"},
	{Name: "clock_seconds", Layout: "15:04:05"},
	{Name: "clock", Layout: "15:04"},
}

// DateLayouts are tried in order for calendar-date columns.
var DateLayouts = []Layout{
	{Name: "date_dmy", Layout: "02/01/2006"},
	{Name: "date_iso", Layout: "2006-01-02"},
	{Name: "datetime_dmy", Layout: "02/01/2006 15:04:05"},
	{Name: "datetime_iso", Layout: "2006-01-02 15:04:05"},
	{Name: "date_iso_t", Layout: "2006-01-02T15:04:05Z07:00"},
}

// Result is the outcome of a parse attempt; OK is false for unparseable input.
type Result struct {
	Value  time.Time
	Layout string
	OK     bool
}

// ParseTime reads a time-of-day cell: native dates pass through, text is tried against TimeLayouts.
func ParseTime(c sheet.Cell) Result {
	if t, ok := c.AsDate(); ok {
		return Result{Value: t, Layout: NativeLayout, OK: true}
	}
	text, ok := c.AsText()
	if !ok {
		return Result{}
	}
	return ParseTimeString(text)
}

// ParseTimeString tries TimeLayouts against s.
func ParseTimeString(s string) Result {
	return parseWith(strings.TrimSpace(s), TimeLayouts)
}

// ParseDate reads a calendar-date cell: native dates pass through, text is tried against DateLayouts.
func ParseDate(c sheet.Cell) Result {
	if t, ok := c.AsDate(); ok {
		return Result{Value: truncateDay(t), Layout: NativeLayout, OK: true}
	}
	text, ok := c.AsText()
	if !ok {
		return Result{}
	}
	return ParseDateString(text)
}

// ParseDateString tries DateLayouts against s and keeps only the calendar day.
func ParseDateString(s string) Result {
	res := parseWith(strings.TrimSpace(s), DateLayouts)
	if res.OK {
		res.Value = truncateDay(res.Value)
	}
	return res
}

func parseWith(s string, layouts []Layout) Result {
	if s == "" {
		return Result{}
	}
	for _, l := range layouts {
		if t, err := time.Parse(l.Layout, s); err == nil {
			return Result{Value: t, Layout: l.Name, OK: true}
		}
	}
	return Result{}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ClockOf returns the time-of-day component of t, discarding any date.
func ClockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

// FormatClock renders t as HH:MM, dropping seconds.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

// FormatDate renders the document display date (DD/MM/YYYY).
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// NormalizeClock rewrites a time string as HH:MM:SS; unparseable input is returned trimmed.
func NormalizeClock(s string) string {
	res := ParseTimeString(s)
	if !res.OK {
		return strings.TrimSpace(s)
	}
	return res.Value.Format("15:04:05")
}

// ClockMinutes returns minutes since midnight of a time string, or -1 when unparseable.
func ClockMinutes(s string) int {
	res := ParseTimeString(s)
	if !res.OK {
		return -1
	}
	return int(ClockOf(res.Value) / time.Minute)
}

var seanceStarts = map[string]models.Seance{
	"08:30": models.SeanceS1,
	"10:30": models.SeanceS2,
	"12:30": models.SeanceS3,
	"14:30": models.SeanceS4,
}

// SeanceForClock maps a slot start time to its seance.
func SeanceForClock(t time.Time) (models.Seance, error) {
	key := FormatClock(t)
	s, ok := seanceStarts[key]
	if !ok {
		return "", fmt.Errorf("start time %s matches no seance", key)
	}
	return s, nil
}
