package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/noah-isme/invigilation-api/internal/identity"
	"github.com/noah-isme/invigilation-api/internal/schema"
	"github.com/noah-isme/invigilation-api/internal/sheet"
	"github.com/noah-isme/invigilation-api/internal/timeparse"
)

var digitsPattern = regexp.MustCompile(`^\d+$`)

// findings accumulates one message per rule, in rule order.
type findings struct {
	errors   []string
	warnings []string
}

func (f *findings) errorf(format string, args ...interface{}) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *findings) warnf(format string, args ...interface{}) {
	f.warnings = append(f.warnings, fmt.Sprintf(format, args...))
}

func (e *Engine) applyRule(table *sheet.Table, rule schema.Rule, out *findings) {
	if !table.HasColumn(rule.Column) {
		return
	}
	switch rule.Type {
	case schema.RuleEnum:
		checkEnum(table, rule, out)
	case schema.RuleBoolean:
		checkBoolean(table, rule, out)
	case schema.RuleDigits:
		checkDigits(table, rule, out)
	case schema.RuleUnique:
		checkUnique(table, rule, out)
	case schema.RuleEmail:
		checkEmail(table, rule, out)
	case schema.RuleSeanceList:
		checkSeanceList(table, rule, out)
	case schema.RuleDate:
		checkDate(table, rule, out)
	case schema.RuleTime:
		e.checkTime(table, rule, out)
	}
}

func checkNotNull(table *sheet.Table, fk *schema.FileKind, out *findings) {
	for _, col := range fk.NotNull {
		n := 0
		for _, row := range table.Rows {
			if row.Get(col).IsEmpty() {
				n++
			}
		}
		if n > 0 {
			out.errorf("column %s has %d empty value(s)", col, n)
		}
	}
}

// distinct collects values in first-seen order.
type distinct struct {
	seen   map[string]struct{}
	values []string
}

func (d *distinct) add(v string) {
	if d.seen == nil {
		d.seen = map[string]struct{}{}
	}
	if _, ok := d.seen[v]; ok {
		return
	}
	d.seen[v] = struct{}{}
	d.values = append(d.values, v)
}

func checkEnum(table *sheet.Table, rule schema.Rule, out *findings) {
	allowed := make(map[string]struct{}, len(rule.Values))
	for _, v := range rule.Values {
		allowed[v] = struct{}{}
	}
	var bad distinct
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		if _, ok := allowed[cell.String()]; !ok {
			bad.add(cell.String())
		}
	}
	if len(bad.values) > 0 {
		out.errorf("column %s has invalid values: %s (allowed: %s)", rule.Column, strings.Join(bad.values, ", "), strings.Join(rule.Values, ", "))
	}
}

var boolTokens = map[string]bool{
	"true":  true,
	"1":     true,
	"vrai":  true,
	"false": false,
	"0":     false,
	"faux":  false,
}

// BoolValue reads a participation flag: True/False, 1/0 or vrai/faux in any case.
func BoolValue(c sheet.Cell) (value bool, ok bool) {
	if c.IsEmpty() {
		return false, false
	}
	value, ok = boolTokens[strings.ToLower(c.String())]
	return value, ok
}

func checkBoolean(table *sheet.Table, rule schema.Rule, out *findings) {
	var bad distinct
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		if _, ok := BoolValue(cell); !ok {
			bad.add(cell.String())
		}
	}
	if len(bad.values) > 0 {
		out.errorf("column %s has invalid boolean values: %s (allowed: True, False, 1, 0)", rule.Column, strings.Join(bad.values, ", "))
	}
}

// IsDigits reports whether the cell holds a non-negative integer written with digits only.
func IsDigits(c sheet.Cell) bool {
	return digitsPattern.MatchString(c.String())
}

func checkDigits(table *sheet.Table, rule schema.Rule, out *findings) {
	n := 0
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		if !IsDigits(cell) {
			n++
		}
	}
	if n > 0 {
		out.errorf("column %s has %d value(s) that are not numeric identifiers", rule.Column, n)
	}
}

// checkUnique reports values seen more than once. Identifier columns compare the
// resolved TeacherID, so "5" and "05" collide and are listed as "5 = 05".
func checkUnique(table *sheet.Table, rule schema.Rule, out *findings) {
	counts := map[string]int{}
	spellings := map[string]*distinct{}
	var dup distinct
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		text := cell.String()
		key := text
		if rule.Identifier {
			if id, err := identity.Resolve(cell); err == nil {
				key = id.String()
			}
		}
		if spellings[key] == nil {
			spellings[key] = &distinct{}
		}
		spellings[key].add(text)
		counts[key]++
		if counts[key] == 2 {
			dup.add(key)
		}
	}
	if len(dup.values) == 0 {
		return
	}
	labels := make([]string, 0, len(dup.values))
	for _, key := range dup.values {
		labels = append(labels, strings.Join(spellings[key].values, " = "))
	}
	out.errorf("column %s has duplicate values: %s", rule.Column, strings.Join(labels, ", "))
}

func checkEmail(table *sheet.Table, rule schema.Rule, out *findings) {
	n := 0
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		if !strings.Contains(cell.String(), "@") {
			n++
		}
	}
	if n > 0 {
		out.warnf("column %s has %d value(s) without '@'", rule.Column, n)
	}
}

// SplitSeances splits a comma separated seance list, trimming and upper-casing tokens.
func SplitSeances(s string) []string {
	var tokens []string
	for _, part := range strings.Split(s, ",") {
		token := strings.ToUpper(strings.TrimSpace(part))
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func checkSeanceList(table *sheet.Table, rule schema.Rule, out *findings) {
	allowed := make(map[string]struct{}, len(rule.Values))
	for _, v := range rule.Values {
		allowed[v] = struct{}{}
	}
	var bad distinct
	sampled := false
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		raw := cell.String()
		if !sampled {
			sampled = true
			if !strings.Contains(raw, ",") {
				out.warnf("column %s should hold comma separated seances (e.g. S1,S2); first value is %q", rule.Column, raw)
			}
		}
		for _, token := range SplitSeances(raw) {
			if _, ok := allowed[token]; !ok {
				bad.add(token)
			}
		}
	}
	if len(bad.values) > 0 {
		out.errorf("column %s has invalid seances: %s (allowed: %s)", rule.Column, strings.Join(bad.values, ", "), strings.Join(rule.Values, ", "))
	}
}

func checkDate(table *sheet.Table, rule schema.Rule, out *findings) {
	n := 0
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		if !timeparse.ParseDate(cell).OK {
			n++
		}
	}
	if n > 0 {
		out.warnf("column %s has %d value(s) that are not recognised dates", rule.Column, n)
	}
}

func (e *Engine) checkTime(table *sheet.Table, rule schema.Rule, out *findings) {
	n := 0
	for _, row := range table.Rows {
		cell := row.Get(rule.Column)
		if cell.IsEmpty() {
			continue
		}
		if !timeparse.ParseTime(cell).OK {
			n++
		}
	}
	switch {
	case n > e.tolerance:
		out.errorf("column %s has %d invalid time value(s)", rule.Column, n)
	case n > 0:
		out.warnf("column %s has %d invalid time value(s), within tolerance of %d", rule.Column, n, e.tolerance)
	}
}

// checkTimeWindow flags rows whose start is not strictly before end, comparing time of day only.
func checkTimeWindow(table *sheet.Table, w schema.TimeWindow, out *findings) {
	var rows []string
	for i, row := range table.Rows {
		start := timeparse.ParseTime(row.Get(w.Start))
		end := timeparse.ParseTime(row.Get(w.End))
		if !start.OK || !end.OK {
			continue
		}
		if timeparse.ClockOf(start.Value) >= timeparse.ClockOf(end.Value) {
			rows = append(rows, strconv.Itoa(i+2))
		}
	}
	if len(rows) > 0 {
		out.errorf("%d row(s) where %s is not before %s (lines %s)", len(rows), w.Start, w.End, strings.Join(rows, ", "))
	}
}
