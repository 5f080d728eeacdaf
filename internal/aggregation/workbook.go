package aggregation

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/timeparse"
	"github.com/noah-isme/invigilation-api/pkg/export"
)

// Sheet names of the planning workbook.
const (
	SheetDetailed = "Planning Detaille"
	SheetSummary  = "Resume Enseignants"
	SheetSessions = "Planning par Seance"
)

var weekdays = map[time.Weekday]string{
	time.Monday:    "Lundi",
	time.Tuesday:   "Mardi",
	time.Wednesday: "Mercredi",
	time.Thursday:  "Jeudi",
	time.Friday:    "Vendredi",
	time.Saturday:  "Samedi",
	time.Sunday:    "Dimanche",
}

// Weekday returns the French day name printed in plannings.
func Weekday(t time.Time) string {
	return weekdays[t.Weekday()]
}

type detailedRow struct {
	date  time.Time
	clock int
	name  string
	cells []string
}

// PlanningSheets renders the overview workbook: every invigilation, a per-teacher summary and a per-session grid.
func (e *Engine) PlanningSheets(index models.AssignmentIndex, teachers models.TeacherDirectory, slots []models.SlotRecord, session models.ExamSession) []export.Sheet {
	var detailed []detailedRow
	type summary struct {
		name  string
		cells []string
	}
	var summaries []summary

	for _, id := range sortedIDs(index) {
		teacher, ok := teachers[id]
		if !ok {
			continue
		}
		refs := append([]models.SlotRef(nil), index[id][models.RoleInvigilator]...)
		if len(refs) == 0 {
			continue
		}
		sort.SliceStable(refs, func(i, j int) bool { return refLess(refs[i], refs[j]) })

		name := teacher.DisplayName()
		var days []string
		seenDay := map[string]struct{}{}
		for _, ref := range refs {
			detailed = append(detailed, detailedRow{
				date:  ref.Date,
				clock: timeparse.ClockMinutes(ref.Time),
				name:  name,
				cells: []string{
					id.String(), name, teacher.Grade, teacher.Email,
					timeparse.FormatDate(ref.Date), displayClock(ref.Time), Weekday(ref.Date), string(ref.Seance),
				},
			})
			day := timeparse.FormatDate(ref.Date)
			if _, ok := seenDay[day]; !ok {
				seenDay[day] = struct{}{}
				days = append(days, day)
			}
		}

		shown := days
		if len(shown) > 5 {
			shown = shown[:5]
		}
		dates := strings.Join(shown, ", ")
		if len(days) > 5 {
			dates += "..."
		}
		summaries = append(summaries, summary{name: name, cells: []string{
			id.String(), name, teacher.Grade, teacher.Email,
			strconv.Itoa(len(refs)), strconv.Itoa(len(days)), dates,
		}})
	}

	sort.SliceStable(detailed, func(i, j int) bool {
		a, b := detailed[i], detailed[j]
		if !a.date.Equal(b.date) {
			return a.date.Before(b.date)
		}
		if a.clock != b.clock {
			return a.clock < b.clock
		}
		return a.name < b.name
	})
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].name < summaries[j].name })

	detailedSheet := export.Sheet{
		Name:    SheetDetailed,
		Headers: []string{"ID Enseignant", "Nom Complet", "Grade", "Email", "Date", "Heure", "Jour", "Séance"},
	}
	for _, row := range detailed {
		detailedSheet.Rows = append(detailedSheet.Rows, row.cells)
	}

	summarySheet := export.Sheet{
		Name:    SheetSummary,
		Headers: []string{"ID Enseignant", "Nom Complet", "Grade", "Email", "Nombre de Surveillances", "Jours Travaillés", "Dates"},
	}
	for _, s := range summaries {
		summarySheet.Rows = append(summarySheet.Rows, s.cells)
	}

	sessionSheet := export.Sheet{
		Name:    SheetSessions,
		Headers: []string{"Date", "Heure", "Séance", "Jour", "Salles", "Surveillants Assignés", "Noms Surveillants"},
	}
	contexts, _ := e.BuildSessionContexts(index, teachers, slots, session)
	for _, c := range contexts {
		day := ""
		if res := timeparse.ParseDateString(c.Date); res.OK {
			day = Weekday(res.Value)
		}
		names := make([]string, 0, len(c.Invigilators))
		for _, inv := range c.Invigilators {
			names = append(names, inv.Name)
		}
		sessionSheet.Rows = append(sessionSheet.Rows, []string{
			c.Date, c.Time, string(c.Seance), day,
			strconv.Itoa(c.RoomCount), strconv.Itoa(c.TotalInvigilators), strings.Join(names, "; "),
		})
	}

	return []export.Sheet{detailedSheet, summarySheet, sessionSheet}
}
