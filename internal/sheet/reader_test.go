package sheet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow(sheet, axis, &values))
	}
	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReaderReadFileTypesCells(t *testing.T) {
	examDay := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	path := writeWorkbook(t, [][]interface{}{
		{" dateExam", "h_debut ", "h_fin", "cod_salle", "enseignant"},
		{examDay, "08:30:00", 10*time.Hour + 30*time.Minute, "A12", 1042},
		{"15/01/2025", "10:30", "12:00", "B3", nil},
		{nil, nil, nil, nil, nil},
	})

	table, err := NewReader().ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"dateExam", "h_debut", "h_fin", "cod_salle", "enseignant"}, table.Columns)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	d, ok := first.Get("dateExam").AsDate()
	require.True(t, ok)
	assert.Equal(t, "2025-01-15", d.Format("2006-01-02"))
	assert.Equal(t, KindText, first.Get("h_debut").Kind())
	end, ok := first.Get("h_fin").AsDate()
	require.True(t, ok)
	assert.Equal(t, "10:30", end.Format("15:04"))
	assert.Equal(t, "A12", first.Get("cod_salle").String())
	code, ok := first.Get("enseignant").AsNumber()
	require.True(t, ok)
	assert.Equal(t, 1042.0, code)

	second := table.Rows[1]
	assert.Equal(t, "15/01/2025", second.Get("dateExam").String())
	assert.True(t, second.Get("enseignant").IsEmpty())
}

func TestReaderReadStream(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Enseignant", "Semestre", "Session", "Jour", "Séances"},
		{"Sami Ben Ali", "S1", "Principale", "Lundi", "S1,S2"},
	})
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	table, err := NewReader().Read(f)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "S1,S2", table.Rows[0].Get("Séances").String())
}

func TestReaderRejectsNonWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.xls")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := NewReader().ReadFile(path)
	assert.Error(t, err)
}

func TestIsDateFormatCode(t *testing.T) {
	assert.True(t, isDateFormatCode("dd/mm/yyyy"))
	assert.True(t, isDateFormatCode("hh:mm"))
	assert.False(t, isDateFormatCode("0.00"))
	assert.False(t, isDateFormatCode(`"days" 0`))
	assert.False(t, isDateFormatCode("[Red]#,##0"))
	assert.True(t, isDateFormatCode("[h]:mm"))
	assert.True(t, isDateFormatCode("[mm]:ss"))
	assert.True(t, isDateFormatCode("[ss]"))
	assert.False(t, isDateFormatCode("[hm]0"))
	assert.False(t, isDateFormatCode("[$-40C]0.00"))
}

func TestReaderElapsedTimeFormatIsDate(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"h_debut", "cod_salle"}))
	require.NoError(t, f.SetCellValue(sheet, "A2", 8.5/24))
	require.NoError(t, f.SetCellValue(sheet, "B2", "A12"))
	elapsed := "[h]:mm"
	style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &elapsed})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle(sheet, "A2", "A2", style))
	path := filepath.Join(t.TempDir(), "elapsed.xlsx")
	require.NoError(t, f.SaveAs(path))

	table, err := NewReader().ReadFile(path)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	start, ok := table.Rows[0].Get("h_debut").AsDate()
	require.True(t, ok, "elapsed-time cells must read as dates")
	assert.Equal(t, "08:30", start.Format("15:04"))
}
