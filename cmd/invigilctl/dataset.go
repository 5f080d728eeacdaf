package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/invigilation-api/internal/aggregation"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/repository"
	"github.com/noah-isme/invigilation-api/internal/service"
	"github.com/noah-isme/invigilation-api/internal/sheet"
	"github.com/noah-isme/invigilation-api/internal/validation"
)

// offlineSession is the session id given to rows loaded from local files.
const offlineSession int64 = 1

type datasetOptions struct {
	teachers     string
	slots        string
	assignments  string
	sessionName  string
	academicYear string
	semester     string
	duration     string
}

func (o *datasetOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.teachers, "teachers", "", "teachers spreadsheet (.xlsx)")
	cmd.Flags().StringVar(&o.slots, "slots", "", "slots spreadsheet (.xlsx)")
	cmd.Flags().StringVar(&o.assignments, "assignments", "", "assignment index (.yaml or .json)")
	cmd.Flags().StringVar(&o.sessionName, "session-name", "", "session name printed on documents")
	cmd.Flags().StringVar(&o.academicYear, "academic-year", "", "academic year printed on documents")
	cmd.Flags().StringVar(&o.semester, "semester", "", "semester printed on documents")
	cmd.Flags().StringVar(&o.duration, "duration", aggregation.DefaultDuration, "surveillance duration printed on convocations")
	_ = cmd.MarkFlagRequired("teachers")
	_ = cmd.MarkFlagRequired("assignments")
}

// dataset is everything aggregation needs, loaded from local files.
type dataset struct {
	session  models.ExamSession
	teachers models.TeacherDirectory
	slots    []models.SlotRecord
	index    models.AssignmentIndex
	failures []models.ItemFailure
}

func loadDataset(ctx context.Context, o *datasetOptions, engine *validation.Engine, logger *zap.Logger) (*dataset, error) {
	teachers := &memoryTeachers{}
	slots := &memorySlots{}
	mapper := service.NewImportMapper(teachers, discardPreferences{}, slots, logger)

	if err := importFile(ctx, engine, mapper, o.teachers, "teachers"); err != nil {
		return nil, err
	}
	if o.slots != "" {
		if err := importFile(ctx, engine, mapper, o.slots, "slots"); err != nil {
			return nil, err
		}
	}
	index, failures, err := readIndex(o.assignments, logger)
	if err != nil {
		return nil, err
	}

	return &dataset{
		session:  models.ExamSession{ID: offlineSession, Name: o.sessionName, AcademicYear: o.academicYear, Semester: o.semester},
		teachers: models.NewTeacherDirectory(teachers.records),
		slots:    slots.records,
		index:    index,
		failures: failures,
	}, nil
}

func importFile(ctx context.Context, engine *validation.Engine, mapper *service.ImportMapper, path, kind string) error {
	verdict := engine.ValidateFile(path, kind)
	if !verdict.Valid {
		return fmt.Errorf("%s is not a valid %s file: %w", path, kind, validation.Err(verdict))
	}
	table, err := sheet.NewReader().ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	report, err := mapper.Persist(ctx, kind, offlineSession, table)
	if err != nil {
		return err
	}
	for _, f := range report.Failures {
		fmt.Fprintf(os.Stderr, "%s %s: %s (%s)\n", filepath.Base(path), f.Item, f.Reason, f.Code)
	}
	return nil
}

func readIndex(path string, logger *zap.Logger) (models.AssignmentIndex, []models.ItemFailure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read assignments: %w", err)
	}
	var raw aggregation.RawIndex
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode assignments: %w", err)
	}
	index, failures := aggregation.ParseIndex(raw, logger)
	return index, failures, nil
}

type memoryTeachers struct {
	records []models.TeacherRecord
}

func (m *memoryTeachers) Upsert(_ context.Context, teacher *models.TeacherRecord) error {
	for i := range m.records {
		if m.records[i].ID == teacher.ID {
			m.records[i] = *teacher
			return nil
		}
	}
	m.records = append(m.records, *teacher)
	return nil
}

func (m *memoryTeachers) ListBySession(_ context.Context, _ int64) ([]models.TeacherRecord, error) {
	out := append([]models.TeacherRecord(nil), m.records...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memorySlots struct {
	records []models.SlotRecord
}

func (m *memorySlots) Create(_ context.Context, slot *models.SlotRecord) error {
	slot.ID = int64(len(m.records) + 1)
	m.records = append(m.records, *slot)
	return nil
}

func (m *memorySlots) ExistingKeys(_ context.Context, _ int64) (map[repository.SlotKey]struct{}, error) {
	keys := make(map[repository.SlotKey]struct{}, len(m.records))
	for _, s := range m.records {
		keys[repository.SlotKey{Date: s.Date.Format("2006-01-02"), StartTime: s.StartTime}] = struct{}{}
	}
	return keys, nil
}

type discardPreferences struct{}

func (discardPreferences) Insert(_ context.Context, _ *models.PreferenceRecord) (bool, error) {
	return true, nil
}
