package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/invigilation-api/internal/models"
)

// SessionRepository persists exam sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a session and fills its generated id.
func (r *SessionRepository) Create(ctx context.Context, session *models.ExamSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_sessions (name, academic_year, semester, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, session.Name, session.AcademicYear, session.Semester, session.CreatedAt).Scan(&session.ID); err != nil {
		return fmt.Errorf("create exam session: %w", err)
	}
	return nil
}

// GetByID returns a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.ExamSession, error) {
	const query = `SELECT id, name, academic_year, semester, created_at FROM exam_sessions WHERE id = $1`
	var session models.ExamSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions, newest first.
func (r *SessionRepository) List(ctx context.Context) ([]models.ExamSession, error) {
	const query = `SELECT id, name, academic_year, semester, created_at FROM exam_sessions ORDER BY created_at DESC, id DESC`
	var sessions []models.ExamSession
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list exam sessions: %w", err)
	}
	return sessions, nil
}
