package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/dto"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/repository"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/jobs"
	"github.com/noah-isme/invigilation-api/pkg/middleware/requestid"
)

type documentJobStore interface {
	Create(ctx context.Context, job *models.DocumentJob) error
	GetByID(ctx context.Context, id string) (*models.DocumentJob, error)
	Update(ctx context.Context, id string, params repository.UpdateDocumentJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.DocumentJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type documentGenerator interface {
	Generate(ctx context.Context, sessionID int64, kind models.DocumentKind) (*models.DocumentBatch, error)
}

// DocumentJobType is the queue job type of document generation.
const DocumentJobType = "documents"

// DocumentJobService manages background document generation jobs.
type DocumentJobService struct {
	repo      documentJobStore
	sessions  sessionReader
	queue     jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentJobService constructs the job service.
func NewDocumentJobService(repo documentJobStore, sessions sessionReader, queue jobDispatcher, validate *validator.Validate, logger *zap.Logger) *DocumentJobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentJobService{repo: repo, sessions: sessions, queue: queue, validator: validate, logger: logger}
}

// CreateJob validates the request, persists the job and enqueues it.
func (s *DocumentJobService) CreateJob(ctx context.Context, req dto.DocumentJobRequest, actorID string) (*dto.DocumentJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.sessions.GetByID(ctx, req.SessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	job := &models.DocumentJob{
		SessionID: req.SessionID,
		Kind:      models.DocumentKind(req.Kind),
		Status:    models.JobStatusQueued,
		Progress:  0,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: DocumentJobType}); err != nil {
		status := models.JobStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateDocumentJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrBusy, "document queue is full, retry later")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue document job")
	}
	s.logger.Info("document job queued",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("job_id", job.ID),
		zap.Int64("session_id", job.SessionID),
		zap.String("kind", string(job.Kind)))
	return &dto.DocumentJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job progress to clients.
func (s *DocumentJobService) GetStatus(ctx context.Context, id string) (*dto.DocumentJobStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document job")
	}
	resp := &dto.DocumentJobStatusResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}
	if job.Status == models.JobStatusFinished {
		summary := job.Summary
		resp.Summary = &summary
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// RecoverPendingJobs replays queued jobs (e.g. after process restart).
func (s *DocumentJobService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued document jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: DocumentJobType}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// DocumentWorker bridges queue jobs to DocumentService.Generate.
type DocumentWorker struct {
	repo       documentJobStore
	generator  documentGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewDocumentWorker constructs a worker.
func NewDocumentWorker(repo documentJobStore, generator documentGenerator, maxRetries int, logger *zap.Logger) *DocumentWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &DocumentWorker{
		repo:       repo,
		generator:  generator,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes a queue job.
func (w *DocumentWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.JobStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateDocumentJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}
	batch, err := w.generator.Generate(ctx, record.SessionID, record.Kind)
	if err != nil {
		msg := err.Error()
		if job.Attempt >= w.maxRetries {
			failed := models.JobStatusFailed
			progress = 100
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateDocumentJobParams{
				Status:       &failed,
				Progress:     &progress,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
			}
		} else {
			queued := models.JobStatusQueued
			reset := 0
			if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateDocumentJobParams{
				Status:       &queued,
				Progress:     &reset,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
			}
		}
		return err
	}
	finished := models.JobStatusFinished
	progress = 100
	now := time.Now().UTC()
	summary := models.JobSummary{Report: batch.Report, Documents: batch.Documents}
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateDocumentJobParams{
		Status:       &finished,
		Progress:     &progress,
		Summary:      &summary,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}
