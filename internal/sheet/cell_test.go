package sheet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCellVariants(t *testing.T) {
	assert.True(t, Text("   ").IsEmpty())
	assert.Equal(t, KindText, Text(" PR ").Kind())
	assert.Equal(t, "PR", Text(" PR ").String())

	assert.Equal(t, "12", Number(12).String())
	assert.Equal(t, "12.5", Number(12.5).String())

	d := time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-01-15 08:30:00", Date(d).String())

	_, ok := Number(3).AsText()
	assert.False(t, ok)
	v, ok := Number(3).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	got, ok := Date(d).AsDate()
	assert.True(t, ok)
	assert.Equal(t, d, got)
	assert.Equal(t, "", Empty().String())
}

func TestNewTableTrimsAndDeduplicatesHeaders(t *testing.T) {
	table := NewTable(
		[]string{" nom_ens ", "prenom_ens", "nom_ens", ""},
		[][]Cell{{Text("Ben Ali"), Text("Sami"), Text("ignored"), Text("ignored")}},
	)

	assert.Equal(t, []string{"nom_ens", "prenom_ens"}, table.Columns)
	assert.Equal(t, "Ben Ali", table.Rows[0].Get("nom_ens").String())
	assert.True(t, table.Rows[0].Get("email_ens").IsEmpty())
	assert.True(t, table.HasColumn("prenom_ens"))
	assert.False(t, table.HasColumn(" nom_ens "))
}

func TestNullCounts(t *testing.T) {
	table := NewTable([]string{"a", "b"}, [][]Cell{
		{Text("x"), Empty()},
		{Empty(), Empty()},
		{Number(1)},
	})

	assert.Equal(t, map[string]int{"a": 1, "b": 3}, table.NullCounts())
}
