package models

import "time"

// Seance is one of the four fixed daily exam periods.
type Seance string

const (
	SeanceS1 Seance = "S1"
	SeanceS2 Seance = "S2"
	SeanceS3 Seance = "S3"
	SeanceS4 Seance = "S4"
)

// AllSeances lists the valid seances in day order.
var AllSeances = []Seance{SeanceS1, SeanceS2, SeanceS3, SeanceS4}

// Valid reports whether s is one of S1..S4.
func (s Seance) Valid() bool {
	switch s {
	case SeanceS1, SeanceS2, SeanceS3, SeanceS4:
		return true
	default:
		return false
	}
}

// SlotRecord is one exam slot: a (date, start time) with its rooms.
type SlotRecord struct {
	ID              int64     `db:"id" json:"id"`
	SessionID       int64     `db:"session_id" json:"session_id"`
	Date            time.Time `db:"exam_date" json:"date"`
	StartTime       string    `db:"start_time" json:"start_time"`
	EndTime         string    `db:"end_time" json:"end_time"`
	RoomCode        string    `db:"room_code" json:"room_code"`
	RoomCount       int       `db:"room_count" json:"room_count"`
	Seance          Seance    `db:"seance" json:"seance"`
	ResponsibleCode *int64    `db:"responsible_code" json:"responsible_code,omitempty"`
}

// BucketKey identifies the (date, seance) group a slot belongs to.
type BucketKey struct {
	Date   string
	Seance Seance
}

// Bucket returns the slot's (date, seance) key; Date is rendered as 2006-01-02.
func (s SlotRecord) Bucket() BucketKey {
	return BucketKey{Date: s.Date.Format("2006-01-02"), Seance: s.Seance}
}
