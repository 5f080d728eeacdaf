package models

import (
	"fmt"
	"strings"
)

// TeacherID is the canonical integer key of a teacher (the smartex code).
type TeacherID int64

// String renders the id in decimal form.
func (id TeacherID) String() string {
	return fmt.Sprintf("%d", int64(id))
}

// TeacherRecord represents an invigilator imported from the teachers roster.
type TeacherRecord struct {
	ID           TeacherID `db:"code" json:"id"`
	SessionID    int64     `db:"session_id" json:"session_id"`
	LastName     string    `db:"last_name" json:"last_name"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Grade        string    `db:"grade" json:"grade"`
	Email        string    `db:"email" json:"email,omitempty"`
	Participates bool      `db:"participates" json:"participates"`
}

// DisplayName returns "LastName FirstName", the form printed on documents.
func (t TeacherRecord) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(t.LastName) + " " + strings.TrimSpace(t.FirstName))
}

// TeacherDirectory indexes teacher records by id.
type TeacherDirectory map[TeacherID]TeacherRecord

// NewTeacherDirectory builds a directory; later duplicates are ignored.
func NewTeacherDirectory(records []TeacherRecord) TeacherDirectory {
	dir := make(TeacherDirectory, len(records))
	for _, r := range records {
		if _, exists := dir[r.ID]; exists {
			continue
		}
		dir[r.ID] = r
	}
	return dir
}
