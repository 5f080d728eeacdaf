package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/invigilation-api/internal/models"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/storage"
)

type teacherListerStub struct{ teachers []models.TeacherRecord }

func (s teacherListerStub) ListBySession(ctx context.Context, sessionID int64) ([]models.TeacherRecord, error) {
	return s.teachers, nil
}

type slotListerStub struct{ slots []models.SlotRecord }

func (s slotListerStub) ListBySession(ctx context.Context, sessionID int64) ([]models.SlotRecord, error) {
	return s.slots, nil
}

type indexLoaderStub struct{ index models.AssignmentIndex }

func (s indexLoaderStub) LoadIndex(ctx context.Context, sessionID int64) (models.AssignmentIndex, error) {
	return s.index, nil
}

type exportStoreStub struct {
	records      map[string]*models.ExportRecord
	order        []string
	deleteCutoff time.Time
}

func newExportStoreStub() *exportStoreStub {
	return &exportStoreStub{records: map[string]*models.ExportRecord{}}
}

func (s *exportStoreStub) Create(ctx context.Context, record *models.ExportRecord) error {
	record.CreatedAt = time.Now().UTC()
	copied := *record
	s.records[record.ID] = &copied
	s.order = append(s.order, record.ID)
	return nil
}

func (s *exportStoreStub) GetByID(ctx context.Context, id string) (*models.ExportRecord, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (s *exportStoreStub) ListBySession(ctx context.Context, sessionID int64, limit, offset int) ([]models.ExportRecord, int, error) {
	var out []models.ExportRecord
	for i, id := range s.order {
		if i >= offset && len(out) < limit {
			out = append(out, *s.records[id])
		}
	}
	return out, len(s.order), nil
}

func (s *exportStoreStub) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.deleteCutoff = cutoff
	return 0, nil
}

type documentMetricsStub struct{ generated, failed int }

func (m *documentMetricsStub) RecordDocument(kind string, ok bool) {
	if ok {
		m.generated++
	} else {
		m.failed++
	}
}

var examDay = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func documentFixture(t *testing.T, templateDir string) (*DocumentService, *exportStoreStub, *documentMetricsStub) {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	exports := newExportStoreStub()
	metrics := &documentMetricsStub{}
	svc := NewDocumentService(DocumentDeps{
		Sessions: sessionReaderStub{},
		Teachers: teacherListerStub{teachers: []models.TeacherRecord{
			{ID: 1001, LastName: "Ben Salah", FirstName: "Amine", Grade: "PR"},
			{ID: 1002, LastName: "Trabelsi", FirstName: "Sana", Grade: "MA"},
		}},
		Slots: slotListerStub{slots: []models.SlotRecord{
			{ID: 1, Date: examDay, StartTime: "08:30:00", Seance: models.SeanceS1, RoomCount: 3},
			{ID: 2, Date: examDay, StartTime: "10:30:00", Seance: models.SeanceS2, RoomCount: 2},
		}},
		Assignments: indexLoaderStub{index: models.AssignmentIndex{
			1001: {models.RoleInvigilator: {{Date: examDay, Time: "08:30", Seance: models.SeanceS1}, {Date: examDay, Time: "10:30:00", Seance: models.SeanceS2}}},
			1002: {models.RoleInvigilator: {{Date: examDay, Time: "08:30:00", Seance: models.SeanceS1}}},
			4242: {models.RoleInvigilator: {{Date: examDay, Time: "08:30:00", Seance: models.SeanceS1}}},
		}},
		Exports:   exports,
		Storage:   files,
		Signer:    storage.NewSignedURLSigner("secret", time.Hour),
		Templates: NewTemplateStore(templateDir),
		Metrics:   metrics,
	}, DocumentConfig{APIPrefix: "/api/v1/"}, nil)
	return svc, exports, metrics
}

func tokenOf(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}

func TestDocumentServiceGenerateConvocations(t *testing.T) {
	svc, exports, metrics := documentFixture(t, "../../templates")
	ctx := context.Background()

	batch, err := svc.Generate(ctx, 7, models.DocumentConvocation)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Report.Total)
	assert.Equal(t, 2, batch.Report.SuccessCount)
	require.Len(t, batch.Report.Failures, 1)
	assert.Equal(t, models.ItemFailure{Item: "4242", Code: appErrors.ErrUnknownTeacher.Code, Reason: "teacher 4242 is not in the roster"}, batch.Report.Failures[0])
	require.Len(t, batch.Documents, 2)
	assert.Equal(t, "convocation_Ben_Salah_Amine.pdf", batch.Documents[0].Name)
	assert.Equal(t, "7/convocation/convocation_Ben_Salah_Amine.pdf", batch.Documents[0].Path)
	assert.True(t, strings.HasPrefix(batch.Documents[0].URL, "/api/v1/documents/download/"))
	assert.Len(t, exports.records, 2)
	assert.Equal(t, 2, metrics.generated)

	download, err := svc.ResolveDownload(ctx, tokenOf(batch.Documents[0].URL))
	require.NoError(t, err)
	defer download.File.Close() //nolint:errcheck
	assert.Equal(t, ContentTypePDF, download.ContentType)
	head := make([]byte, 4)
	_, err = io.ReadFull(download.File, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestDocumentServiceGeneratePlannings(t *testing.T) {
	svc, _, _ := documentFixture(t, "../../templates")

	batch, err := svc.Generate(context.Background(), 7, models.DocumentPlanning)
	require.NoError(t, err)
	require.Len(t, batch.Documents, 2)
	assert.Equal(t, "planning_20250115_S1.pdf", batch.Documents[0].Name)
	assert.Equal(t, "planning_20250115_S2.pdf", batch.Documents[1].Name)
}

func TestDocumentServiceMissingTemplateFailsCall(t *testing.T) {
	svc, exports, _ := documentFixture(t, t.TempDir())

	_, err := svc.Generate(context.Background(), 7, models.DocumentConvocation)
	assert.True(t, errors.Is(err, appErrors.ErrTemplateMissing))
	assert.Empty(t, exports.records)

	_, err = svc.Generate(context.Background(), 7, models.DocumentKind("badge"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDocumentServiceContexts(t *testing.T) {
	svc, _, _ := documentFixture(t, "../../templates")
	ctx := context.Background()

	teachers, failures, err := svc.TeacherContexts(ctx, 7, nil)
	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Len(t, failures, 1)
	assert.Equal(t, 2, teachers[0].TotalSurveillances)

	supplied := models.AssignmentIndex{1002: {models.RoleInvigilator: {{Date: examDay, Time: "10:30", Seance: models.SeanceS2}}}}
	sessions, failures, err := svc.SessionContexts(ctx, 7, supplied)
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.SeanceS2, sessions[0].Seance)
	assert.Equal(t, 2, sessions[0].RoomCount)

	_, _, err = svc.TeacherContexts(ctx, 99, nil)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDocumentServiceExportWorkbook(t *testing.T) {
	svc, exports, _ := documentFixture(t, "../../templates")
	ctx := context.Background()

	xlsx, err := svc.ExportWorkbook(ctx, 7, "XLSX")
	require.NoError(t, err)
	assert.Equal(t, "planning_session_7.xlsx", xlsx.Name)
	assert.Equal(t, ContentTypeXLSX, xlsx.ContentType)
	assert.NotEmpty(t, xlsx.Data)

	csv, err := svc.ExportWorkbook(ctx, 7, "csv")
	require.NoError(t, err)
	assert.Contains(t, string(csv.Data), "Ben Salah Amine")
	assert.Len(t, exports.records, 2)

	_, err = svc.ExportWorkbook(ctx, 7, "ods")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	records, page, err := svc.ListExports(ctx, 7, 0, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 1, TotalCount: 2}, *page)
}

func TestDocumentServiceResolveDownloadRejectsBadTokens(t *testing.T) {
	svc, exports, _ := documentFixture(t, "../../templates")
	ctx := context.Background()

	_, err := svc.ResolveDownload(ctx, "garbage")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	batch, err := svc.Generate(ctx, 7, models.DocumentConvocation)
	require.NoError(t, err)
	token := tokenOf(batch.Documents[0].URL)
	delete(exports.records, batch.Documents[0].ExportID)
	_, err = svc.ResolveDownload(ctx, token)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDocumentServiceCleanupUsesSignerTTL(t *testing.T) {
	svc, exports, _ := documentFixture(t, "../../templates")
	before := time.Now().UTC().Add(-time.Hour)
	svc.Cleanup(context.Background())
	assert.WithinDuration(t, before, exports.deleteCutoff, 5*time.Second)
}
