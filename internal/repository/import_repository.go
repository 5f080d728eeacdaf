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

const importColumns = `id, session_id, kind, file_name, stored_path, state, verdict, created_by, created_at, updated_at`

// ImportRepository persists uploaded spreadsheets and their lifecycle state.
type ImportRepository struct {
	db *sqlx.DB
}

// NewImportRepository constructs the repository.
func NewImportRepository(db *sqlx.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Create inserts an import row with generated defaults.
func (r *ImportRepository) Create(ctx context.Context, record *models.ImportRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.State == "" {
		record.State = models.ImportUploaded
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO imports (` + importColumns + `)
VALUES (:id, :session_id, :kind, :file_name, :stored_path, :state, :verdict, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create import: %w", err)
	}
	return nil
}

// GetByID returns an import by id.
func (r *ImportRepository) GetByID(ctx context.Context, id string) (*models.ImportRecord, error) {
	const query = `SELECT ` + importColumns + ` FROM imports WHERE id = $1`
	var record models.ImportRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateImportParams defines the mutable fields.
type UpdateImportParams struct {
	State   *models.ImportState
	Verdict *models.ValidationVerdict
}

// Update persists the provided changes and bumps updated_at.
func (r *ImportRepository) Update(ctx context.Context, id string, params UpdateImportParams) error {
	set := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	argPos := 1

	if params.State != nil {
		set = append(set, fmt.Sprintf("state = $%d", argPos))
		args = append(args, *params.State)
		argPos++
	}
	if params.Verdict != nil {
		set = append(set, fmt.Sprintf("verdict = $%d", argPos))
		args = append(args, *params.Verdict)
		argPos++
	}
	if len(set) == 0 {
		return nil
	}

	set = append(set, fmt.Sprintf("updated_at = $%d", argPos))
	args = append(args, time.Now().UTC())
	argPos++

	query := fmt.Sprintf("UPDATE imports SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update import: %w", err)
	}
	return nil
}

// ListStale returns imports still waiting for a decision that were last touched before cutoff.
func (r *ImportRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.ImportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT ` + importColumns + ` FROM imports
WHERE state IN ('validated', 'rejected') AND updated_at < $1 ORDER BY updated_at ASC LIMIT $2`
	var records []models.ImportRecord
	if err := r.db.SelectContext(ctx, &records, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list stale imports: %w", err)
	}
	return records, nil
}
