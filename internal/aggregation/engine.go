// Package aggregation regroups assignment facts into per-teacher and per-session document contexts.
package aggregation

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/identity"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/timeparse"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

// DefaultDuration is printed on convocations when no duration is configured.
const DefaultDuration = "1.5H"

// Matcher decides whether an assignment reference designates a stored slot.
type Matcher func(ref models.SlotRef, slot models.SlotRecord) bool

// MatchByAttributes compares calendar day, start time to the minute, and seance.
func MatchByAttributes(ref models.SlotRef, slot models.SlotRecord) bool {
	if ref.Seance != slot.Seance {
		return false
	}
	if ref.Date.Format("2006-01-02") != slot.Date.Format("2006-01-02") {
		return false
	}
	return clockKey(ref.Time) == clockKey(slot.StartTime)
}

// Engine builds document contexts. It keeps no state between calls.
type Engine struct {
	// Match joins assignment references to slots; defaults to MatchByAttributes.
	Match    Matcher
	duration string
	logger   *zap.Logger
}

// NewEngine constructs an Engine; an empty duration falls back to DefaultDuration.
func NewEngine(duration string, logger *zap.Logger) *Engine {
	if strings.TrimSpace(duration) == "" {
		duration = DefaultDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Match: MatchByAttributes, duration: duration, logger: logger}
}

// NormalizeIndex resolves loosely typed teacher keys into an AssignmentIndex, reporting rejected keys.
func NormalizeIndex[K comparable](raw map[K]models.RoleAssignments, logger *zap.Logger) (models.AssignmentIndex, []models.ItemFailure) {
	resolved, failures := identity.NormalizeKeys(raw, logger)
	return models.AssignmentIndex(resolved), failures
}

// BuildTeacherContexts produces one convocation context per assigned teacher, ordered by teacher id.
// Unknown teachers are reported and skipped; teachers without invigilation duties are skipped silently.
func (e *Engine) BuildTeacherContexts(index models.AssignmentIndex, teachers models.TeacherDirectory, session models.ExamSession) ([]models.TeacherContext, []models.ItemFailure) {
	contexts := []models.TeacherContext{}
	var failures []models.ItemFailure

	for _, id := range sortedIDs(index) {
		teacher, ok := teachers[id]
		if !ok {
			failures = append(failures, unknownTeacher(id))
			e.logger.Warn("assignment for unknown teacher skipped", zap.Int64("teacher_id", int64(id)))
			continue
		}

		refs := append([]models.SlotRef(nil), index[id][models.RoleInvigilator]...)
		if len(refs) == 0 {
			continue
		}
		sort.SliceStable(refs, func(i, j int) bool {
			return refLess(refs[i], refs[j])
		})

		entries := make([]models.SurveillanceEntry, 0, len(refs))
		for _, ref := range refs {
			entries = append(entries, models.SurveillanceEntry{
				Date:     timeparse.FormatDate(ref.Date),
				Time:     displayClock(ref.Time),
				Duration: e.duration,
				Seance:   ref.Seance,
			})
		}

		name := teacher.DisplayName()
		contexts = append(contexts, models.TeacherContext{
			TeacherID:          id,
			TeacherName:        name,
			Grade:              teacher.Grade,
			Email:              teacher.Email,
			SessionName:        session.Name,
			AcademicYear:       session.AcademicYear,
			Semester:           session.Semester,
			Surveillances:      entries,
			TotalSurveillances: len(entries),
			FileStem:           ConvocationStem(name),
		})
	}

	e.logger.Info("teacher contexts built", zap.Int("contexts", len(contexts)), zap.Int("failures", len(failures)))
	return contexts, failures
}

type bucket struct {
	key     models.BucketKey
	members []int
}

// BuildSessionContexts produces one planning context per (date, seance) bucket that has invigilators.
// Buckets keep the order in which slots first mention them; rosters list each teacher once, in encounter order.
func (e *Engine) BuildSessionContexts(index models.AssignmentIndex, teachers models.TeacherDirectory, slots []models.SlotRecord, session models.ExamSession) ([]models.SessionContext, []models.ItemFailure) {
	var buckets []*bucket
	byKey := map[models.BucketKey]*bucket{}
	for i, slot := range slots {
		key := slot.Bucket()
		b, ok := byKey[key]
		if !ok {
			b = &bucket{key: key}
			byKey[key] = b
			buckets = append(buckets, b)
		}
		b.members = append(b.members, i)
	}

	var failures []models.ItemFailure
	assigned := map[int][]models.TeacherID{}
	unmatched := 0
	for _, id := range sortedIDs(index) {
		if _, ok := teachers[id]; !ok {
			failures = append(failures, unknownTeacher(id))
			e.logger.Warn("assignment for unknown teacher skipped", zap.Int64("teacher_id", int64(id)))
			continue
		}
		for _, ref := range index[id][models.RoleInvigilator] {
			slot := e.locate(ref, slots)
			if slot < 0 {
				unmatched++
				continue
			}
			assigned[slot] = append(assigned[slot], id)
		}
	}
	if unmatched > 0 {
		e.logger.Debug("assignment references without a matching slot dropped", zap.Int("count", unmatched))
	}

	contexts := []models.SessionContext{}
	for _, b := range buckets {
		seen := map[models.TeacherID]struct{}{}
		roster := []models.RosterEntry{}
		rooms := 0
		for _, slot := range b.members {
			rooms += slots[slot].RoomCount
			for _, id := range assigned[slot] {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				teacher := teachers[id]
				roster = append(roster, models.RosterEntry{TeacherID: id, Name: teacher.DisplayName(), Grade: teacher.Grade})
			}
		}
		if len(roster) == 0 {
			continue
		}

		first := slots[b.members[0]]
		contexts = append(contexts, models.SessionContext{
			Semester:          session.Semester,
			Session:           session.Name,
			AcademicYear:      session.AcademicYear,
			Date:              timeparse.FormatDate(first.Date),
			Seance:            b.key.Seance,
			Time:              displayClock(first.StartTime),
			Invigilators:      roster,
			TotalInvigilators: len(roster),
			RoomCount:         rooms,
			FileStem:          PlanningStem(first),
		})
	}

	e.logger.Info("session contexts built", zap.Int("buckets", len(buckets)), zap.Int("contexts", len(contexts)))
	return contexts, failures
}

// locate returns the index of the first slot matching ref, or -1.
func (e *Engine) locate(ref models.SlotRef, slots []models.SlotRecord) int {
	match := e.Match
	if match == nil {
		match = MatchByAttributes
	}
	for i, slot := range slots {
		if match(ref, slot) {
			return i
		}
	}
	return -1
}

var stemReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// ConvocationStem is the file name, without extension, of a teacher's convocation.
func ConvocationStem(teacherName string) string {
	return "convocation_" + stemReplacer.Replace(strings.TrimSpace(teacherName))
}

// PlanningStem is the file name, without extension, of a bucket's planning sheet.
func PlanningStem(slot models.SlotRecord) string {
	return fmt.Sprintf("planning_%s_%s", slot.Date.Format("20060102"), slot.Seance)
}

func sortedIDs(index models.AssignmentIndex) []models.TeacherID {
	ids := make([]models.TeacherID, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func unknownTeacher(id models.TeacherID) models.ItemFailure {
	return models.ItemFailure{
		Item:   id.String(),
		Code:   appErrors.ErrUnknownTeacher.Code,
		Reason: fmt.Sprintf("teacher %s is not in the roster", id),
	}
}

func refLess(a, b models.SlotRef) bool {
	da, db := a.Date.Format("2006-01-02"), b.Date.Format("2006-01-02")
	if da != db {
		return da < db
	}
	ma, mb := timeparse.ClockMinutes(a.Time), timeparse.ClockMinutes(b.Time)
	if ma != mb {
		return ma < mb
	}
	return strings.TrimSpace(a.Time) < strings.TrimSpace(b.Time)
}

// clockKey normalises a time string to HH:MM for comparison.
func clockKey(s string) string {
	res := timeparse.ParseTimeString(s)
	if !res.OK {
		return strings.TrimSpace(s)
	}
	return timeparse.FormatClock(res.Value)
}

// displayClock renders a stored time as HH:MM; unparseable values keep their first five characters.
func displayClock(s string) string {
	res := timeparse.ParseTimeString(s)
	if res.OK {
		return timeparse.FormatClock(res.Value)
	}
	s = strings.TrimSpace(s)
	if len(s) > 5 {
		return s[:5]
	}
	return s
}
