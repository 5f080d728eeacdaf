package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/identity"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/repository"
	"github.com/noah-isme/invigilation-api/internal/schema"
	"github.com/noah-isme/invigilation-api/internal/sheet"
	"github.com/noah-isme/invigilation-api/internal/timeparse"
	"github.com/noah-isme/invigilation-api/internal/validation"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

type teacherStore interface {
	Upsert(ctx context.Context, teacher *models.TeacherRecord) error
	ListBySession(ctx context.Context, sessionID int64) ([]models.TeacherRecord, error)
}

type preferenceStore interface {
	Insert(ctx context.Context, pref *models.PreferenceRecord) (bool, error)
}

type slotStore interface {
	Create(ctx context.Context, slot *models.SlotRecord) error
	ExistingKeys(ctx context.Context, sessionID int64) (map[repository.SlotKey]struct{}, error)
}

// ImportMapper turns validated tables into stored rows. Every row is attempted; failures are collected, not returned.
type ImportMapper struct {
	teachers    teacherStore
	preferences preferenceStore
	slots       slotStore
	logger      *zap.Logger
}

// NewImportMapper constructs the mapper.
func NewImportMapper(teachers teacherStore, preferences preferenceStore, slots slotStore, logger *zap.Logger) *ImportMapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportMapper{teachers: teachers, preferences: preferences, slots: slots, logger: logger}
}

// Persist stores the rows of table as kind for sessionID.
func (m *ImportMapper) Persist(ctx context.Context, kind string, sessionID int64, table *sheet.Table) (models.BatchReport, error) {
	switch kind {
	case schema.KindTeachers:
		return m.persistTeachers(ctx, sessionID, table), nil
	case schema.KindPreferences:
		return m.persistPreferences(ctx, sessionID, table)
	case schema.KindSlots:
		return m.persistSlots(ctx, sessionID, table)
	default:
		return models.BatchReport{}, appErrors.Clone(appErrors.ErrUnknownFileKind, fmt.Sprintf("no row mapping for kind %q", kind))
	}
}

// rowItem names a data row by its spreadsheet line (header is line 1).
func rowItem(i int) string {
	return fmt.Sprintf("row %d", i+2)
}

func (m *ImportMapper) persistTeachers(ctx context.Context, sessionID int64, table *sheet.Table) models.BatchReport {
	report := models.BatchReport{Failures: []models.ItemFailure{}}
	for i, row := range table.Rows {
		item := rowItem(i)
		id, err := identity.Resolve(row.Get("code_smartex_ens"))
		if err != nil {
			m.logger.Warn("teacher row with invalid identifier", zap.String("item", item), zap.String("value", row.Get("code_smartex_ens").String()))
			report.Fail(item, appErrors.ErrInvalidIdentifier.Code, err.Error())
			continue
		}
		participates, ok := validation.BoolValue(row.Get("participe_surveillance"))
		if !ok {
			report.Fail(item, appErrors.ErrValidation.Code, fmt.Sprintf("participe_surveillance %q is not a boolean", row.Get("participe_surveillance").String()))
			continue
		}
		teacher := &models.TeacherRecord{
			ID:           id,
			SessionID:    sessionID,
			LastName:     strings.TrimSpace(row.Get("nom_ens").String()),
			FirstName:    strings.TrimSpace(row.Get("prenom_ens").String()),
			Grade:        strings.ToUpper(strings.TrimSpace(row.Get("grade_code_ens").String())),
			Email:        strings.TrimSpace(row.Get("email_ens").String()),
			Participates: participates,
		}
		if err := m.teachers.Upsert(ctx, teacher); err != nil {
			m.logger.Error("teacher upsert failed", zap.String("item", item), zap.Error(err))
			report.Fail(item, appErrors.ErrInternal.Code, "failed to store teacher")
			continue
		}
		report.Succeed()
	}
	m.logger.Info("teachers imported", zap.Int64("session_id", sessionID), zap.Int("stored", report.SuccessCount), zap.Int("failed", len(report.Failures)))
	return report
}

// teacherLookup matches the free-form Enseignant column of a preferences file.
type teacherLookup map[string]models.TeacherID

func newTeacherLookup(teachers []models.TeacherRecord) teacherLookup {
	lookup := make(teacherLookup, len(teachers)*3)
	for _, t := range teachers {
		first := strings.TrimSpace(t.FirstName)
		last := strings.TrimSpace(t.LastName)
		lookup[normalizeName(first+" "+last)] = t.ID
		lookup[normalizeName(last+" "+first)] = t.ID
		lookup[t.ID.String()] = t.ID
	}
	return lookup
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (l teacherLookup) find(c sheet.Cell) (models.TeacherID, bool) {
	if id, err := identity.Resolve(c); err == nil {
		if _, ok := l[id.String()]; ok {
			return id, true
		}
	}
	id, ok := l[normalizeName(c.String())]
	return id, ok
}

func (m *ImportMapper) persistPreferences(ctx context.Context, sessionID int64, table *sheet.Table) (models.BatchReport, error) {
	teachers, err := m.teachers.ListBySession(ctx, sessionID)
	if err != nil {
		return models.BatchReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	lookup := newTeacherLookup(teachers)

	report := models.BatchReport{Failures: []models.ItemFailure{}}
	for i, row := range table.Rows {
		item := rowItem(i)
		name := row.Get("Enseignant")
		id, ok := lookup.find(name)
		if !ok {
			m.logger.Warn("preference for unknown teacher", zap.String("item", item), zap.String("teacher", name.String()))
			report.Fail(item, appErrors.ErrUnknownTeacher.Code, fmt.Sprintf("teacher %q is not in the roster", name.String()))
			continue
		}
		day := strings.TrimSpace(row.Get("Jour").String())
		var rowErr error
		for _, token := range validation.SplitSeances(row.Get("Séances").String()) {
			seance := models.Seance(token)
			if !seance.Valid() {
				rowErr = fmt.Errorf("seance %q is not one of S1..S4", token)
				break
			}
			pref := &models.PreferenceRecord{SessionID: sessionID, TeacherID: id, Day: day, Seance: seance, Rank: i}
			if _, err := m.preferences.Insert(ctx, pref); err != nil {
				m.logger.Error("preference insert failed", zap.String("item", item), zap.Error(err))
				rowErr = fmt.Errorf("failed to store preference")
				break
			}
		}
		if rowErr != nil {
			report.Fail(item, appErrors.ErrValidation.Code, rowErr.Error())
			continue
		}
		report.Succeed()
	}
	m.logger.Info("preferences imported", zap.Int64("session_id", sessionID), zap.Int("stored", report.SuccessCount), zap.Int("failed", len(report.Failures)))
	return report, nil
}

type slotGroup struct {
	key         repository.SlotKey
	date        time.Time
	start       time.Time
	end         time.Time
	rooms       []string
	roomSeen    map[string]struct{}
	responsible *int64
	firstRow    int
}

func (m *ImportMapper) persistSlots(ctx context.Context, sessionID int64, table *sheet.Table) (models.BatchReport, error) {
	existing, err := m.slots.ExistingKeys(ctx, sessionID)
	if err != nil {
		return models.BatchReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing slots")
	}

	report := models.BatchReport{Failures: []models.ItemFailure{}}
	var groups []*slotGroup
	byKey := map[repository.SlotKey]*slotGroup{}
	for i, row := range table.Rows {
		item := rowItem(i)
		date := timeparse.ParseDate(row.Get("dateExam"))
		start := timeparse.ParseTime(row.Get("h_debut"))
		end := timeparse.ParseTime(row.Get("h_fin"))
		if !date.OK || !start.OK || !end.OK {
			report.Fail(item, appErrors.ErrValidation.Code, "unreadable date or time")
			continue
		}
		key := repository.SlotKey{Date: date.Value.Format("2006-01-02"), StartTime: start.Value.Format("15:04:05")}
		g, ok := byKey[key]
		if !ok {
			g = &slotGroup{key: key, date: date.Value, start: start.Value, end: end.Value, roomSeen: map[string]struct{}{}, firstRow: i}
			byKey[key] = g
			groups = append(groups, g)
		}
		if room := strings.TrimSpace(row.Get("cod_salle").String()); room != "" {
			if _, dup := g.roomSeen[room]; !dup {
				g.roomSeen[room] = struct{}{}
				g.rooms = append(g.rooms, room)
			}
		}
		if g.responsible == nil && validation.IsDigits(row.Get("enseignant")) {
			if id, err := identity.Resolve(row.Get("enseignant")); err == nil {
				code := int64(id)
				g.responsible = &code
			}
		}
	}

	for _, g := range groups {
		item := rowItem(g.firstRow)
		if _, stored := existing[g.key]; stored {
			report.Fail(item, appErrors.ErrConflict.Code, fmt.Sprintf("slot %s %s already stored", timeparse.FormatDate(g.date), timeparse.FormatClock(g.start)))
			continue
		}
		seance, err := timeparse.SeanceForClock(g.start)
		if err != nil {
			report.Fail(item, appErrors.ErrValidation.Code, err.Error())
			continue
		}
		slot := &models.SlotRecord{
			SessionID:       sessionID,
			Date:            g.date,
			StartTime:       g.key.StartTime,
			EndTime:         g.end.Format("15:04:05"),
			RoomCode:        strings.Join(g.rooms, ","),
			RoomCount:       len(g.rooms),
			Seance:          seance,
			ResponsibleCode: g.responsible,
		}
		if err := m.slots.Create(ctx, slot); err != nil {
			m.logger.Error("slot insert failed", zap.String("item", item), zap.Error(err))
			report.Fail(item, appErrors.ErrInternal.Code, "failed to store slot")
			continue
		}
		existing[g.key] = struct{}{}
		report.Succeed()
	}
	m.logger.Info("slots imported", zap.Int64("session_id", sessionID), zap.Int("stored", report.SuccessCount), zap.Int("failed", len(report.Failures)))
	return report, nil
}
