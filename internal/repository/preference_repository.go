package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/invigilation-api/internal/models"
)

// PreferenceRepository persists teacher (day, seance) wishes.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs the repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Insert stores a preference. It reports false when the (teacher, day, seance) already exists.
func (r *PreferenceRepository) Insert(ctx context.Context, pref *models.PreferenceRecord) (bool, error) {
	const query = `INSERT INTO preferences (session_id, teacher_id, day, seance, rank)
		VALUES (:session_id, :teacher_id, :day, :seance, :rank)
		ON CONFLICT (session_id, teacher_id, day, seance) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, pref)
	if err != nil {
		return false, fmt.Errorf("insert preference: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert preference: %w", err)
	}
	return affected > 0, nil
}

// ListBySession returns preferences in rank order.
func (r *PreferenceRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.PreferenceRecord, error) {
	const query = `SELECT id, session_id, teacher_id, day, seance, rank FROM preferences WHERE session_id = $1 ORDER BY rank, id`
	var prefs []models.PreferenceRecord
	if err := r.db.SelectContext(ctx, &prefs, query, sessionID); err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	return prefs, nil
}
