package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/invigilation-api/internal/models"
)

// ExportRepository logs files generated for a session.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs the repository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts an export log entry.
func (r *ExportRepository) Create(ctx context.Context, record *models.ExportRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exports (id, session_id, kind, file_path, created_at) VALUES (:id, :session_id, :kind, :file_path, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	return nil
}

// ListBySession returns a page of exports, newest first, with the total count.
func (r *ExportRepository) ListBySession(ctx context.Context, sessionID int64, limit, offset int) ([]models.ExportRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT id, session_id, kind, file_path, created_at FROM exports WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var records []models.ExportRecord
	if err := r.db.SelectContext(ctx, &records, query, sessionID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list exports: %w", err)
	}
	const countQuery = `SELECT COUNT(*) FROM exports WHERE session_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, sessionID); err != nil {
		return nil, 0, fmt.Errorf("count exports: %w", err)
	}
	return records, total, nil
}

// GetByID returns an export entry by id.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.ExportRecord, error) {
	const query = `SELECT id, session_id, kind, file_path, created_at FROM exports WHERE id = $1`
	var record models.ExportRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteBefore removes entries created before cutoff and reports how many were removed.
func (r *ExportRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM exports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete exports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete exports: %w", err)
	}
	return n, nil
}
