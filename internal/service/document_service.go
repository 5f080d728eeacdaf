package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/aggregation"
	"github.com/noah-isme/invigilation-api/internal/models"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/export"
	"github.com/noah-isme/invigilation-api/pkg/storage"
)

type teacherLister interface {
	ListBySession(ctx context.Context, sessionID int64) ([]models.TeacherRecord, error)
}

type slotLister interface {
	ListBySession(ctx context.Context, sessionID int64) ([]models.SlotRecord, error)
}

type indexLoader interface {
	LoadIndex(ctx context.Context, sessionID int64) (models.AssignmentIndex, error)
}

type exportStore interface {
	Create(ctx context.Context, record *models.ExportRecord) error
	GetByID(ctx context.Context, id string) (*models.ExportRecord, error)
	ListBySession(ctx context.Context, sessionID int64, limit, offset int) ([]models.ExportRecord, int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type workbookRenderer interface {
	Render(sheets []export.Sheet) ([]byte, error)
}

type csvRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

type documentObserver interface {
	RecordDocument(kind string, ok bool)
}

// Workbook formats accepted by ExportWorkbook.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Content types of produced files.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
)

// DocumentConfig tunes document generation.
type DocumentConfig struct {
	APIPrefix       string
	CleanupInterval time.Duration
}

// DocumentDeps groups the collaborators of DocumentService.
type DocumentDeps struct {
	Sessions    sessionReader
	Teachers    teacherLister
	Slots       slotLister
	Assignments indexLoader
	Exports     exportStore
	Storage     fileStorage
	Signer      *storage.SignedURLSigner
	Templates   *TemplateStore
	Engine      *aggregation.Engine
	PDF         pdfRenderer
	XLSX        workbookRenderer
	CSV         csvRenderer
	Metrics     documentObserver
}

// WorkbookFile is a rendered planning overview.
type WorkbookFile struct {
	Name        string
	ContentType string
	Data        []byte
	Export      *models.ExportRecord
}

// DocumentDownload is a resolved signed download.
type DocumentDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// DocumentService aggregates session data into document contexts and renders, stores and signs the documents.
type DocumentService struct {
	deps   DocumentDeps
	logger *zap.Logger
	cfg    DocumentConfig
}

// NewDocumentService constructs the service; nil renderers fall back to the pkg/export defaults.
func NewDocumentService(deps DocumentDeps, cfg DocumentConfig, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = aggregation.NewEngine("", logger)
	}
	if deps.PDF == nil {
		deps.PDF = export.NewPDFExporter()
	}
	if deps.XLSX == nil {
		deps.XLSX = export.NewXLSXExporter()
	}
	if deps.CSV == nil {
		deps.CSV = export.NewCSVExporter(';')
	}
	return &DocumentService{deps: deps, logger: logger, cfg: cfg}
}

type sessionData struct {
	session  models.ExamSession
	teachers models.TeacherDirectory
	slots    []models.SlotRecord
	index    models.AssignmentIndex
}

// load gathers what aggregation needs; a nil index is read from the assignments table.
func (s *DocumentService) load(ctx context.Context, sessionID int64, index models.AssignmentIndex, withSlots bool) (*sessionData, error) {
	session, err := s.deps.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	teachers, err := s.deps.Teachers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	data := &sessionData{session: *session, teachers: models.NewTeacherDirectory(teachers), index: index}
	if data.index == nil {
		if data.index, err = s.deps.Assignments.LoadIndex(ctx, sessionID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
		}
	}
	if withSlots {
		if data.slots, err = s.deps.Slots.ListBySession(ctx, sessionID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
		}
	}
	return data, nil
}

// TeacherContexts builds one convocation context per invigilating teacher of the session.
func (s *DocumentService) TeacherContexts(ctx context.Context, sessionID int64, index models.AssignmentIndex) ([]models.TeacherContext, []models.ItemFailure, error) {
	data, err := s.load(ctx, sessionID, index, false)
	if err != nil {
		return nil, nil, err
	}
	contexts, failures := s.deps.Engine.BuildTeacherContexts(data.index, data.teachers, data.session)
	return contexts, failures, nil
}

// SessionContexts builds one planning context per (date, seance) of the session.
func (s *DocumentService) SessionContexts(ctx context.Context, sessionID int64, index models.AssignmentIndex) ([]models.SessionContext, []models.ItemFailure, error) {
	data, err := s.load(ctx, sessionID, index, true)
	if err != nil {
		return nil, nil, err
	}
	contexts, failures := s.deps.Engine.BuildSessionContexts(data.index, data.teachers, data.slots, data.session)
	return contexts, failures, nil
}

// Generate renders every document of kind for the session. Each document succeeds or fails on its own;
// only a missing template or unreadable session data fails the whole call.
func (s *DocumentService) Generate(ctx context.Context, sessionID int64, kind models.DocumentKind) (*models.DocumentBatch, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported document kind %q", kind))
	}
	tpl, err := s.deps.Templates.Load(kind)
	if err != nil {
		return nil, err
	}
	data, err := s.load(ctx, sessionID, nil, kind == models.DocumentPlanning)
	if err != nil {
		return nil, err
	}

	batch := &models.DocumentBatch{
		Kind:      kind,
		SessionID: sessionID,
		Report:    models.BatchReport{Failures: []models.ItemFailure{}},
		Documents: []models.GeneratedDocument{},
	}
	switch kind {
	case models.DocumentConvocation:
		contexts, failures := s.deps.Engine.BuildTeacherContexts(data.index, data.teachers, data.session)
		batch.Report.Merge(failures)
		for _, c := range contexts {
			rows := make([]interface{}, 0, len(c.Surveillances))
			for _, entry := range c.Surveillances {
				rows = append(rows, entry)
			}
			s.render(ctx, batch, tpl, c.TeacherID.String(), c.FileStem, c, rows)
		}
	case models.DocumentPlanning:
		contexts, failures := s.deps.Engine.BuildSessionContexts(data.index, data.teachers, data.slots, data.session)
		batch.Report.Merge(failures)
		for _, c := range contexts {
			rows := make([]interface{}, 0, len(c.Invigilators))
			for _, entry := range c.Invigilators {
				rows = append(rows, entry)
			}
			s.render(ctx, batch, tpl, c.FileStem, c.FileStem, c, rows)
		}
	}

	s.logger.Info("documents generated",
		zap.Int64("session_id", sessionID),
		zap.String("kind", string(kind)),
		zap.Int("total", batch.Report.Total),
		zap.Int("generated", batch.Report.SuccessCount),
		zap.Int("failed", len(batch.Report.Failures)))
	return batch, nil
}

func (s *DocumentService) render(ctx context.Context, batch *models.DocumentBatch, tpl *DocumentTemplate, item, stem string, data interface{}, rows []interface{}) {
	fail := func(code, reason string, err error) {
		s.logger.Error("document generation failed", zap.String("kind", string(batch.Kind)), zap.String("item", item), zap.Error(err))
		batch.Report.Fail(item, code, reason)
		s.observe(batch.Kind, false)
	}

	doc, err := tpl.Build(data, rows)
	if err != nil {
		fail(appErrors.ErrTemplateMissing.Code, "template could not be rendered", err)
		return
	}
	payload, err := s.deps.PDF.Render(doc)
	if err != nil {
		fail(appErrors.ErrInternal.Code, "pdf rendering failed", err)
		return
	}
	name := stem + ".pdf"
	stored, err := s.store(ctx, batch.SessionID, string(batch.Kind), name, payload)
	if err != nil {
		fail(appErrors.ErrInternal.Code, "document could not be stored", err)
		return
	}
	batch.Report.Succeed()
	batch.Documents = append(batch.Documents, *stored)
	s.observe(batch.Kind, true)
}

// store saves payload, logs it as an export and signs a download URL for it.
func (s *DocumentService) store(ctx context.Context, sessionID int64, kind, name string, payload []byte) (*models.GeneratedDocument, error) {
	relPath, err := s.deps.Storage.Save(path.Join(fmt.Sprintf("%d", sessionID), kind, name), payload)
	if err != nil {
		return nil, err
	}
	record := &models.ExportRecord{ID: uuid.NewString(), SessionID: sessionID, Kind: kind, FilePath: relPath}
	if err := s.deps.Exports.Create(ctx, record); err != nil {
		_ = s.deps.Storage.Delete(relPath)
		return nil, err
	}
	token, expiresAt, err := s.deps.Signer.Generate(record.ID, relPath)
	if err != nil {
		return nil, err
	}
	return &models.GeneratedDocument{
		ExportID:  record.ID,
		Name:      name,
		Path:      relPath,
		URL:       s.downloadURL(token),
		ExpiresAt: expiresAt,
	}, nil
}

func (s *DocumentService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/documents/download/%s", prefix, token)
}

// ExportWorkbook renders the planning overview as xlsx (all sheets) or csv (detailed sheet) and logs it as an export.
func (s *DocumentService) ExportWorkbook(ctx context.Context, sessionID int64, format string) (*WorkbookFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatXLSX && format != FormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported workbook format %q", format))
	}
	data, err := s.load(ctx, sessionID, nil, true)
	if err != nil {
		return nil, err
	}
	sheets := s.deps.Engine.PlanningSheets(data.index, data.teachers, data.slots, data.session)

	file := &WorkbookFile{Name: fmt.Sprintf("planning_session_%d.%s", sessionID, format)}
	switch format {
	case FormatXLSX:
		file.ContentType = ContentTypeXLSX
		file.Data, err = s.deps.XLSX.Render(sheets)
	case FormatCSV:
		file.ContentType = ContentTypeCSV
		file.Data, err = s.deps.CSV.Render(sheets[0])
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render workbook")
	}

	relPath, err := s.deps.Storage.Save(path.Join(fmt.Sprintf("%d", sessionID), "workbook", file.Name), file.Data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store workbook")
	}
	record := &models.ExportRecord{ID: uuid.NewString(), SessionID: sessionID, Kind: "workbook_" + format, FilePath: relPath}
	if err := s.deps.Exports.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record export")
	}
	file.Export = record
	return file, nil
}

// ListExports pages through the files generated for a session.
func (s *DocumentService) ListExports(ctx context.Context, sessionID int64, page, pageSize int) ([]models.ExportRecord, *models.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	records, total, err := s.deps.Exports.ListBySession(ctx, sessionID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exports")
	}
	if records == nil {
		records = []models.ExportRecord{}
	}
	return records, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ResolveDownload validates a signed token and opens the stored document.
func (s *DocumentService) ResolveDownload(ctx context.Context, token string) (*DocumentDownload, error) {
	claims, err := s.deps.Signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	record, err := s.deps.Exports.GetByID(ctx, claims.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export")
	}
	if record.FilePath != claims.Path {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.deps.Storage.Open(claims.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	return &DocumentDownload{
		File:        file,
		Filename:    path.Base(claims.Path),
		ContentType: contentTypeFor(claims.Path),
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		return ContentTypeXLSX
	case ".csv":
		return ContentTypeCSV
	default:
		return ContentTypePDF
	}
}

// Cleanup drops exports older than the signed URL TTL together with their files.
func (s *DocumentService) Cleanup(ctx context.Context) {
	ttl := s.deps.Signer.TTL()
	removed, err := s.deps.Exports.DeleteBefore(ctx, time.Now().UTC().Add(-ttl))
	if err != nil {
		s.logger.Sugar().Warnw("export cleanup failed", "error", err)
		return
	}
	deleted, err := s.deps.Storage.CleanupOlderThan(ttl)
	if err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
		return
	}
	if removed > 0 || len(deleted) > 0 {
		s.logger.Sugar().Infow("expired documents removed", "exports", removed, "files", len(deleted))
	}
}

// StartCleanup boots a goroutine that purges expired documents periodically.
func (s *DocumentService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(ctx)
			}
		}
	}()
}

func (s *DocumentService) observe(kind models.DocumentKind, ok bool) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordDocument(string(kind), ok)
	}
}
