package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/invigilation-api/internal/models"
)

// AssignmentRepository reads the teacher-to-slot assignments written by the planning solver.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ListBySession returns assignment rows ordered by teacher, date and time.
func (r *AssignmentRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.AssignmentRow, error) {
	const query = `SELECT session_id, teacher_id, role, exam_date, start_time, seance
FROM assignments WHERE session_id = $1 ORDER BY teacher_id, exam_date, start_time`
	var rows []models.AssignmentRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

// LoadIndex groups a session's assignments by teacher and role.
func (r *AssignmentRepository) LoadIndex(ctx context.Context, sessionID int64) (models.AssignmentIndex, error) {
	rows, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return IndexFromRows(rows), nil
}

// IndexFromRows folds assignment rows into an index, keeping row order within each role.
func IndexFromRows(rows []models.AssignmentRow) models.AssignmentIndex {
	index := models.AssignmentIndex{}
	for _, row := range rows {
		roles, ok := index[row.TeacherID]
		if !ok {
			roles = models.RoleAssignments{}
			index[row.TeacherID] = roles
		}
		roles[row.Role] = append(roles[row.Role], models.SlotRef{Date: row.Date, Time: row.StartTime, Seance: row.Seance})
	}
	return index
}
