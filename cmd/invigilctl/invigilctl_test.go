package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, dir, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := row
		require.NoError(t, f.SetSheetRow(sheetName, axis, &values))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

type fixture struct {
	teachers, slots, assignments string
	dir                          string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	teachers := writeWorkbook(t, dir, "enseignants.xlsx", [][]interface{}{
		{"nom_ens", "prenom_ens", "grade_code_ens", "code_smartex_ens", "participe_surveillance"},
		{"Ben Salah", "Amine", "PR", 1001, "True"},
		{"Trabelsi", "Sana", "MA", 1002, "True"},
	})
	slots := writeWorkbook(t, dir, "repartitions.xlsx", [][]interface{}{
		{"dateExam", "h_debut", "h_fin", "session", "type ex", "semestre", "enseignant", "cod_salle"},
		{"15/01/2025", "08:30:00", "10:00:00", "Principale", "E", "S1", "1001", "A1"},
		{"15/01/2025", "08:30:00", "10:00:00", "Principale", "E", "S1", "1002", "A2"},
		{"15/01/2025", "10:30:00", "12:00:00", "Principale", "E", "S1", "1002", "B1"},
	})
	assignments := filepath.Join(dir, "assignments.yaml")
	require.NoError(t, os.WriteFile(assignments, []byte(`
"1001":
  surveillant:
    - {date: "2025-01-15", time: "08:30", seance: S1}
"1002":
  surveillant:
    - {date: "2025-01-15", time: "08:30", seance: S1}
    - {date: "2025-01-15", time: "10:30", seance: S2}
"9999":
  surveillant:
    - {date: "2025-01-15", time: "08:30", seance: S1}
`), 0o644))
	return fixture{teachers: teachers, slots: slots, assignments: assignments, dir: dir}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	fx := newFixture(t)

	out, err := run(t, "validate", "--kind", "teachers", fx.teachers)
	require.NoError(t, err)
	assert.Contains(t, out, "VALID (teachers, 2 rows)")

	out, err = run(t, "validate", "--kind", "teachers", "--json", fx.slots)
	assert.ErrorIs(t, err, errInvalidFiles)
	var verdicts map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &verdicts))
	assert.Equal(t, false, verdicts[fx.slots]["is_valid"])
}

func TestContextsCommand(t *testing.T) {
	fx := newFixture(t)

	out, err := run(t, "contexts", "--teachers", fx.teachers, "--slots", fx.slots, "--assignments", fx.assignments, "--session-name", "Principale")
	require.NoError(t, err)
	var byTeacher struct {
		Contexts []map[string]interface{} `json:"contexts"`
		Failures []map[string]interface{} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &byTeacher))
	require.Len(t, byTeacher.Contexts, 2)
	assert.Equal(t, "Ben Salah Amine", byTeacher.Contexts[0]["teacher_name"])
	require.Len(t, byTeacher.Failures, 1)
	assert.Equal(t, "UNKNOWN_TEACHER", byTeacher.Failures[0]["code"])

	out, err = run(t, "contexts", "--by", "session", "--teachers", fx.teachers, "--slots", fx.slots, "--assignments", fx.assignments)
	require.NoError(t, err)
	var bySession struct {
		Contexts []map[string]interface{} `json:"contexts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &bySession))
	require.Len(t, bySession.Contexts, 2)
	assert.Equal(t, float64(2), bySession.Contexts[0]["total_surveillants"])
	assert.Equal(t, float64(2), bySession.Contexts[0]["nb_salles"])

	_, err = run(t, "contexts", "--by", "room", "--teachers", fx.teachers, "--assignments", fx.assignments)
	assert.Error(t, err)
}

func TestExportCommand(t *testing.T) {
	fx := newFixture(t)
	out := filepath.Join(fx.dir, "planning.xlsx")

	_, err := run(t, "export", "--teachers", fx.teachers, "--slots", fx.slots, "--assignments", fx.assignments, "--out", out)
	require.NoError(t, err)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	assert.Equal(t, []string{"Planning Detaille", "Resume Enseignants", "Planning par Seance"}, f.GetSheetList())

	_, err = run(t, "export", "--teachers", fx.teachers, "--assignments", fx.assignments, "--out", filepath.Join(fx.dir, "planning.ods"))
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := run(t, "token", "--secret", "s3cret", "--role", "staff")
	require.NoError(t, err)
	assert.Regexp(t, `^[\w-]+\.[\w-]+\.[\w-]+\n$`, out)

	_, err = run(t, "token", "--secret", "s3cret", "--role", "guest")
	assert.Error(t, err)
}
