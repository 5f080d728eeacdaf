package aggregation

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/invigilation-api/internal/models"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

var session = models.ExamSession{ID: 7, Name: "Principale", AcademicYear: "2024/2025", Semester: "S1"}

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func directory() models.TeacherDirectory {
	return models.NewTeacherDirectory([]models.TeacherRecord{
		{ID: 1001, LastName: "Ben Salah", FirstName: "Amine", Grade: "PR", Email: "amine@univ.tn"},
		{ID: 1002, LastName: "Trabelsi", FirstName: "Sana", Grade: "MA"},
		{ID: 1003, LastName: "Gharbi", FirstName: "Ali/Med", Grade: "AS"},
	})
}

func ref(d int, clock string, s models.Seance) models.SlotRef {
	return models.SlotRef{Date: day(d), Time: clock, Seance: s}
}

func invigilates(refs ...models.SlotRef) models.RoleAssignments {
	return models.RoleAssignments{models.RoleInvigilator: refs}
}

func TestBuildTeacherContextsSortsAndFormats(t *testing.T) {
	index := models.AssignmentIndex{
		1001: invigilates(ref(15, "10:30:00", models.SeanceS2), ref(15, "08:30", models.SeanceS1), ref(14, "14:30:00", models.SeanceS4)),
	}
	original := append([]models.SlotRef(nil), index[1001][models.RoleInvigilator]...)

	contexts, failures := NewEngine("", nil).BuildTeacherContexts(index, directory(), session)
	require.Empty(t, failures)

	want := []models.TeacherContext{{
		TeacherID:    1001,
		TeacherName:  "Ben Salah Amine",
		Grade:        "PR",
		Email:        "amine@univ.tn",
		SessionName:  "Principale",
		AcademicYear: "2024/2025",
		Semester:     "S1",
		Surveillances: []models.SurveillanceEntry{
			{Date: "14/01/2025", Time: "14:30", Duration: "1.5H", Seance: models.SeanceS4},
			{Date: "15/01/2025", Time: "08:30", Duration: "1.5H", Seance: models.SeanceS1},
			{Date: "15/01/2025", Time: "10:30", Duration: "1.5H", Seance: models.SeanceS2},
		},
		TotalSurveillances: 3,
		FileStem:           "convocation_Ben_Salah_Amine",
	}}
	if diff := cmp.Diff(want, contexts); diff != "" {
		t.Fatalf("teacher contexts mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, original, index[1001][models.RoleInvigilator], "input must not be reordered")
}

func TestBuildTeacherContextsPartialFailure(t *testing.T) {
	index := models.AssignmentIndex{
		1003: invigilates(ref(16, "08:30", models.SeanceS1)),
		9999: invigilates(ref(16, "08:30", models.SeanceS1)),
		1002: {models.RoleResponsible: []models.SlotRef{ref(16, "08:30", models.SeanceS1)}},
		1001: invigilates(ref(16, "10:30", models.SeanceS2)),
	}

	contexts, failures := NewEngine("2H", nil).BuildTeacherContexts(index, directory(), session)

	require.Len(t, contexts, 2)
	assert.Equal(t, models.TeacherID(1001), contexts[0].TeacherID)
	assert.Equal(t, models.TeacherID(1003), contexts[1].TeacherID)
	assert.Equal(t, "convocation_Gharbi_Ali_Med", contexts[1].FileStem)
	assert.Equal(t, "2H", contexts[1].Surveillances[0].Duration)

	require.Len(t, failures, 1)
	assert.Equal(t, "9999", failures[0].Item)
	assert.Equal(t, appErrors.ErrUnknownTeacher.Code, failures[0].Code)
}

func TestBuildSessionContextsDeduplicatesWithinBucket(t *testing.T) {
	slots := []models.SlotRecord{
		{ID: 1, Date: day(15), StartTime: "08:30:00", Seance: models.SeanceS1, RoomCount: 3},
		{ID: 2, Date: day(15), StartTime: "08:30", Seance: models.SeanceS1, RoomCount: 2},
		{ID: 3, Date: day(15), StartTime: "10:30:00", Seance: models.SeanceS2, RoomCount: 4},
		{ID: 4, Date: day(14), StartTime: "08:30:00", Seance: models.SeanceS1, RoomCount: 1},
	}
	index := models.AssignmentIndex{
		1002: invigilates(ref(15, "08:30", models.SeanceS1)),
		1001: invigilates(ref(15, "08:30:00", models.SeanceS1), ref(15, "08:30", models.SeanceS1)),
		1003: invigilates(ref(14, "08:30", models.SeanceS1), ref(20, "08:30", models.SeanceS1)),
	}

	contexts, failures := NewEngine("", nil).BuildSessionContexts(index, directory(), slots, session)
	require.Empty(t, failures)

	want := []models.SessionContext{
		{
			Semester:     "S1",
			Session:      "Principale",
			AcademicYear: "2024/2025",
			Date:         "15/01/2025",
			Seance:       models.SeanceS1,
			Time:         "08:30",
			Invigilators: []models.RosterEntry{
				{TeacherID: 1001, Name: "Ben Salah Amine", Grade: "PR"},
				{TeacherID: 1002, Name: "Trabelsi Sana", Grade: "MA"},
			},
			TotalInvigilators: 2,
			RoomCount:         5,
			FileStem:          "planning_20250115_S1",
		},
		{
			Semester:     "S1",
			Session:      "Principale",
			AcademicYear: "2024/2025",
			Date:         "14/01/2025",
			Seance:       models.SeanceS1,
			Time:         "08:30",
			Invigilators: []models.RosterEntry{
				{TeacherID: 1003, Name: "Gharbi Ali/Med", Grade: "AS"},
			},
			TotalInvigilators: 1,
			RoomCount:         1,
			FileStem:          "planning_20250114_S1",
		},
	}
	if diff := cmp.Diff(want, contexts); diff != "" {
		t.Fatalf("session contexts mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSessionContextsTwoSlotsSameBucket(t *testing.T) {
	slots := []models.SlotRecord{
		{Date: day(15), StartTime: "08:30", Seance: models.SeanceS1, RoomCount: 1},
		{Date: day(15), StartTime: "09:00", Seance: models.SeanceS1, RoomCount: 1},
	}
	index := models.AssignmentIndex{
		1001: invigilates(ref(15, "08:30", models.SeanceS1), ref(15, "09:00", models.SeanceS1)),
	}

	contexts, _ := NewEngine("", nil).BuildSessionContexts(index, directory(), slots, session)
	require.Len(t, contexts, 1)
	assert.Len(t, contexts[0].Invigilators, 1)
	assert.Equal(t, 2, contexts[0].RoomCount)
}

func TestBuildSessionContextsUsesMatcherSeam(t *testing.T) {
	slots := []models.SlotRecord{
		{ID: 10, Date: day(15), StartTime: "08:30", Seance: models.SeanceS1, RoomCount: 2},
	}
	index := models.AssignmentIndex{
		1001: invigilates(ref(15, "08:31", models.SeanceS1)),
		4242: invigilates(ref(15, "08:30", models.SeanceS1)),
	}

	engine := NewEngine("", nil)
	contexts, failures := engine.BuildSessionContexts(index, directory(), slots, session)
	assert.Empty(t, contexts, "unmatched references are dropped")
	require.Len(t, failures, 1)
	assert.Equal(t, "4242", failures[0].Item)

	engine.Match = func(r models.SlotRef, s models.SlotRecord) bool {
		return r.Seance == s.Seance
	}
	contexts, _ = engine.BuildSessionContexts(index, directory(), slots, session)
	require.Len(t, contexts, 1)
	assert.Equal(t, models.TeacherID(1001), contexts[0].Invigilators[0].TeacherID)
}

func TestNormalizeIndex(t *testing.T) {
	raw := map[string]models.RoleAssignments{
		"1001": invigilates(ref(15, "08:30", models.SeanceS1)),
		"abc":  invigilates(ref(15, "08:30", models.SeanceS1)),
	}
	index, failures := NormalizeIndex(raw, nil)
	assert.Len(t, index, 1)
	assert.Contains(t, index, models.TeacherID(1001))
	require.Len(t, failures, 1)
	assert.Equal(t, appErrors.ErrInvalidIdentifier.Code, failures[0].Code)
}

func TestMatchByAttributes(t *testing.T) {
	slot := models.SlotRecord{Date: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), StartTime: "08:30:00", Seance: models.SeanceS1}

	assert.True(t, MatchByAttributes(models.SlotRef{Date: time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC), Time: "08:30", Seance: models.SeanceS1}, slot))
	assert.False(t, MatchByAttributes(ref(15, "08:30", models.SeanceS2), slot))
	assert.False(t, MatchByAttributes(ref(16, "08:30", models.SeanceS1), slot))
	assert.False(t, MatchByAttributes(ref(15, "10:30", models.SeanceS1), slot))
}
