package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/invigilation-api/internal/models"
)

// SlotKey identifies a stored slot by its exam date (2006-01-02) and start time (15:04:05).
type SlotKey struct {
	Date      string
	StartTime string
}

// SlotRepository persists exam slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository constructs the repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

// Create inserts a slot and fills its generated id.
func (r *SlotRepository) Create(ctx context.Context, slot *models.SlotRecord) error {
	const query = `INSERT INTO slots (session_id, exam_date, start_time, end_time, room_code, room_count, seance, responsible_code)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query,
		slot.SessionID,
		slot.Date,
		slot.StartTime,
		slot.EndTime,
		slot.RoomCode,
		slot.RoomCount,
		slot.Seance,
		slot.ResponsibleCode,
	)
	if err := row.Scan(&slot.ID); err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// ListBySession returns slots in insertion order, which is the order they were read from the file.
func (r *SlotRepository) ListBySession(ctx context.Context, sessionID int64) ([]models.SlotRecord, error) {
	const query = `SELECT id, session_id, exam_date, start_time, end_time, room_code, room_count, seance, responsible_code
FROM slots WHERE session_id = $1 ORDER BY id`
	var slots []models.SlotRecord
	if err := r.db.SelectContext(ctx, &slots, query, sessionID); err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// ExistingKeys returns the (date, start time) pairs already stored for a session.
func (r *SlotRepository) ExistingKeys(ctx context.Context, sessionID int64) (map[SlotKey]struct{}, error) {
	slots, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	keys := make(map[SlotKey]struct{}, len(slots))
	for _, s := range slots {
		keys[SlotKey{Date: s.Date.Format("2006-01-02"), StartTime: s.StartTime}] = struct{}{}
	}
	return keys, nil
}
