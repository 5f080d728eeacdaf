package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/invigilation-api/internal/models"
)

// TeacherRepository persists the invigilator roster of each session.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs the repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// Upsert inserts a teacher or refreshes the row with the same (session, code).
func (r *TeacherRepository) Upsert(ctx context.Context, teacher *models.TeacherRecord) error {
	const query = `INSERT INTO teachers (code, session_id, last_name, first_name, grade, email, participates)
		VALUES (:code, :session_id, :last_name, :first_name, :grade, :email, :participates)
		ON CONFLICT (session_id, code) DO UPDATE
		SET last_name = EXCLUDED.last_name,
		    first_name = EXCLUDED.first_name,
		    grade = EXCLUDED.grade,
		    email = EXCLUDED.email,
		    participates = EXCLUDED.participates`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("upsert teacher: %w", err)
	}
	return nil
}

// ListBySession returns the roster ordered by code.
func (r *TeacherRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.TeacherRecord, error) {
	const query = `SELECT code, session_id, last_name, first_name, grade, email, participates FROM teachers WHERE session_id = $1 ORDER BY code`
	var teachers []models.TeacherRecord
	if err := r.db.SelectContext(ctx, &teachers, query, sessionID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}
