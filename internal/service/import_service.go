package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/repository"
	"github.com/noah-isme/invigilation-api/internal/sheet"
	"github.com/noah-isme/invigilation-api/internal/validation"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/middleware/requestid"
)

type importStore interface {
	Create(ctx context.Context, record *models.ImportRecord) error
	GetByID(ctx context.Context, id string) (*models.ImportRecord, error)
	Update(ctx context.Context, id string, params repository.UpdateImportParams) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.ImportRecord, error)
}

type sessionReader interface {
	GetByID(ctx context.Context, id int64) (*models.ExamSession, error)
}

type uploadStorage interface {
	SaveStream(filename string, r io.Reader, maxBytes int64) (string, error)
	Path(filename string) (string, error)
	Delete(filename string) error
}

type tableReader interface {
	ReadFile(path string) (*sheet.Table, error)
}

type rowPersister interface {
	Persist(ctx context.Context, kind string, sessionID int64, table *sheet.Table) (models.BatchReport, error)
}

type importObserver interface {
	RecordImport(kind string, state models.ImportState)
}

// Import lifecycle events.
const (
	eventValidate = "validate"
	eventReject   = "reject"
	eventPersist  = "persist"
	eventExpire   = "expire"
)

func newImportMachine(state models.ImportState) *fsm.FSM {
	return fsm.NewFSM(
		string(state),
		fsm.Events{
			{Name: eventValidate, Src: []string{string(models.ImportUploaded)}, Dst: string(models.ImportValidated)},
			{Name: eventReject, Src: []string{string(models.ImportUploaded)}, Dst: string(models.ImportRejected)},
			{Name: eventPersist, Src: []string{string(models.ImportValidated)}, Dst: string(models.ImportPersisted)},
			{Name: eventExpire, Src: []string{string(models.ImportValidated), string(models.ImportRejected)}, Dst: string(models.ImportExpired)},
		},
		fsm.Callbacks{},
	)
}

// transition applies event to state, refusing moves the lifecycle does not allow.
func transition(ctx context.Context, state models.ImportState, event string) (models.ImportState, error) {
	machine := newImportMachine(state)
	if err := machine.Event(ctx, event); err != nil {
		return state, appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status,
			fmt.Sprintf("cannot %s an import that is %s", event, state))
	}
	return models.ImportState(machine.Current()), nil
}

// ImportServiceConfig tunes upload handling.
type ImportServiceConfig struct {
	MaxFileSize int64
	StaleAfter  time.Duration
	ExpiryEvery time.Duration
}

// UploadInput describes a spreadsheet received for a session.
type UploadInput struct {
	SessionID int64
	Kind      string
	FileName  string
	Content   io.Reader
	ActorID   string
}

// ImportService drives uploaded spreadsheets from validation to persisted rows.
type ImportService struct {
	repo     importStore
	sessions sessionReader
	uploads  uploadStorage
	engine   *validation.Engine
	reader   tableReader
	mapper   rowPersister
	verdicts *VerdictCache
	metrics  importObserver
	logger   *zap.Logger
	cfg      ImportServiceConfig
}

// NewImportService constructs the import service.
func NewImportService(repo importStore, sessions sessionReader, uploads uploadStorage, engine *validation.Engine, mapper rowPersister, verdicts *VerdictCache, metrics importObserver, logger *zap.Logger, cfg ImportServiceConfig) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	return &ImportService{
		repo:     repo,
		sessions: sessions,
		uploads:  uploads,
		engine:   engine,
		reader:   sheet.NewReader(),
		mapper:   mapper,
		verdicts: verdicts,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// Validate checks a spreadsheet without storing anything.
func (s *ImportService) Validate(ctx context.Context, name string, content io.Reader, kind string) models.ValidationVerdict {
	return s.engine.ValidateReader(name, content, kind)
}

// Upload stores the file, validates it and records the import as validated or rejected.
func (s *ImportService) Upload(ctx context.Context, in UploadInput) (*models.ImportRecord, error) {
	fk, err := s.engine.Catalog().Lookup(in.Kind)
	if err != nil {
		return nil, err
	}
	if err := validation.CheckExtension(in.FileName); err != nil {
		return nil, err
	}
	if _, err := s.sessions.GetByID(ctx, in.SessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	id := uuid.NewString()
	stored := id + strings.ToLower(filepath.Ext(in.FileName))
	relPath, err := s.uploads.SaveStream(stored, in.Content, s.cfg.MaxFileSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to store upload")
	}
	path, err := s.uploads.Path(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve upload")
	}

	verdict := s.engine.ValidateFile(path, fk.Name)
	event := eventReject
	if verdict.Valid {
		event = eventValidate
	}
	state, err := transition(ctx, models.ImportUploaded, event)
	if err != nil {
		return nil, err
	}

	record := &models.ImportRecord{
		ID:         id,
		SessionID:  in.SessionID,
		Kind:       fk.Name,
		FileName:   filepath.Base(in.FileName),
		StoredPath: relPath,
		State:      state,
		Verdict:    verdict,
		CreatedBy:  in.ActorID,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		_ = s.uploads.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record import")
	}
	s.verdicts.Put(ctx, record.ID, verdict)
	s.observe(record)
	s.logger.Info("import uploaded",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("import_id", record.ID),
		zap.String("kind", record.Kind),
		zap.String("state", string(record.State)),
		zap.Int("errors", len(verdict.Errors)),
		zap.Int("warnings", len(verdict.Warnings)))
	return record, nil
}

// Get returns an import by id.
func (s *ImportService) Get(ctx context.Context, id string) (*models.ImportRecord, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "import not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load import")
	}
	return record, nil
}

// Verdict returns the verdict of a stored upload, from the cache when it is still warm.
func (s *ImportService) Verdict(ctx context.Context, id string) (models.ValidationVerdict, error) {
	if verdict, ok := s.verdicts.Get(ctx, id); ok {
		return verdict, nil
	}
	record, err := s.Get(ctx, id)
	if err != nil {
		return models.ValidationVerdict{}, err
	}
	if record.State == models.ImportExpired {
		return record.Verdict, nil
	}
	path, err := s.uploads.Path(record.StoredPath)
	if err != nil {
		return models.ValidationVerdict{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve upload")
	}
	verdict := s.engine.ValidateFile(path, record.Kind)
	s.verdicts.Put(ctx, id, verdict)
	return verdict, nil
}

// Persist writes the rows of a validated import. Any other state fails with INVALID_TRANSITION.
func (s *ImportService) Persist(ctx context.Context, id string) (*models.ImportRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !newImportMachine(record.State).Can(eventPersist) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("import %s is %s; only validated imports can be persisted", record.ID, record.State))
	}
	if !record.Verdict.Valid {
		return nil, validation.Err(record.Verdict)
	}

	path, err := s.uploads.Path(record.StoredPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve upload")
	}
	table, err := s.reader.ReadFile(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnreadableFile.Code, appErrors.ErrUnreadableFile.Status, "failed to read upload")
	}
	report, err := s.mapper.Persist(ctx, record.Kind, record.SessionID, table)
	if err != nil {
		return nil, err
	}

	state, err := transition(ctx, record.State, eventPersist)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, record.ID, repository.UpdateImportParams{State: &state}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update import")
	}
	record.State = state
	record.Persisted = &report
	s.verdicts.Forget(ctx, record.ID)
	s.observe(record)
	s.logger.Info("import persisted",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("import_id", record.ID),
		zap.String("kind", record.Kind),
		zap.Int("total", report.Total),
		zap.Int("stored", report.SuccessCount))
	return record, nil
}

// ExpireStale expires validated or rejected imports untouched for StaleAfter and removes their files.
func (s *ImportService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.StaleAfter)
	stale, err := s.repo.ListStale(ctx, cutoff, 100)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list stale imports")
	}
	expired := 0
	for i := range stale {
		record := &stale[i]
		state, err := transition(ctx, record.State, eventExpire)
		if err != nil {
			s.logger.Sugar().Warnw("stale import skipped", "import_id", record.ID, "error", err)
			continue
		}
		if err := s.repo.Update(ctx, record.ID, repository.UpdateImportParams{State: &state}); err != nil {
			s.logger.Sugar().Warnw("failed to expire import", "import_id", record.ID, "error", err)
			continue
		}
		if err := s.uploads.Delete(record.StoredPath); err != nil {
			s.logger.Sugar().Warnw("failed to delete expired upload", "import_id", record.ID, "error", err)
		}
		s.verdicts.Forget(ctx, record.ID)
		record.State = state
		s.observe(record)
		expired++
	}
	return expired, nil
}

// StartExpiry boots a goroutine that expires stale imports periodically.
func (s *ImportService) StartExpiry(ctx context.Context) {
	if s.cfg.ExpiryEvery <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.ExpiryEvery)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := s.ExpireStale(ctx); err != nil {
					s.logger.Sugar().Warnw("import expiry failed", "error", err)
				} else if n > 0 {
					s.logger.Sugar().Infow("stale imports expired", "count", n)
				}
			}
		}
	}()
}

func (s *ImportService) observe(record *models.ImportRecord) {
	if s.metrics != nil {
		s.metrics.RecordImport(record.Kind, record.State)
	}
}
