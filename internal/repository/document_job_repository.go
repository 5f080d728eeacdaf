package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/invigilation-api/internal/models"
)

const documentJobColumns = `id, session_id, kind, status, progress, summary, created_by, created_at, finished_at, error_message`

// DocumentJobRepository persists background document generation jobs.
type DocumentJobRepository struct {
	db *sqlx.DB
}

// NewDocumentJobRepository constructs the repository.
func NewDocumentJobRepository(db *sqlx.DB) *DocumentJobRepository {
	return &DocumentJobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *DocumentJobRepository) Create(ctx context.Context, job *models.DocumentJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_jobs (` + documentJobColumns + `)
VALUES (:id, :session_id, :kind, :status, :progress, :summary, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create document job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *DocumentJobRepository) GetByID(ctx context.Context, id string) (*models.DocumentJob, error) {
	const query = `SELECT ` + documentJobColumns + ` FROM document_jobs WHERE id = $1`
	var job models.DocumentJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateDocumentJobParams defines the mutable fields.
type UpdateDocumentJobParams struct {
	Status       *models.JobStatus
	Progress     *int
	Summary      *models.JobSummary
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *DocumentJobRepository) Update(ctx context.Context, id string, params UpdateDocumentJobParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.Progress != nil {
		set = append(set, fmt.Sprintf("progress = $%d", argPos))
		args = append(args, *params.Progress)
		argPos++
	}
	if params.Summary != nil {
		set = append(set, fmt.Sprintf("summary = $%d", argPos))
		args = append(args, *params.Summary)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.FinishedAt != nil {
		set = append(set, fmt.Sprintf("finished_at = $%d", argPos))
		args = append(args, *params.FinishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE document_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update document job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs for recovery after a restart.
func (r *DocumentJobRepository) ListQueued(ctx context.Context, limit int) ([]models.DocumentJob, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + documentJobColumns + ` FROM document_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1`
	var jobs []models.DocumentJob
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, fmt.Errorf("list queued document jobs: %w", err)
	}
	return jobs, nil
}
