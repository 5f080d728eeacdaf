package models

import "time"

// DocumentKind selects which documents are generated.
type DocumentKind string

const (
	DocumentConvocation DocumentKind = "convocation"
	DocumentPlanning    DocumentKind = "planning"
)

// Valid reports whether k is a known kind.
func (k DocumentKind) Valid() bool {
	return k == DocumentConvocation || k == DocumentPlanning
}

// SurveillanceEntry is one line of a teacher's convocation.
type SurveillanceEntry struct {
	Date     string `json:"date"`
	Time     string `json:"heure"`
	Duration string `json:"duree"`
	Seance   Seance `json:"seance"`
}

// TeacherContext is the render input for one teacher's convocation.
type TeacherContext struct {
	TeacherID          TeacherID           `json:"teacher_id"`
	TeacherName        string              `json:"teacher_name"`
	Grade              string              `json:"grade"`
	Email              string              `json:"email"`
	SessionName        string              `json:"session_name"`
	AcademicYear       string              `json:"annee_academique"`
	Semester           string              `json:"semestre"`
	Surveillances      []SurveillanceEntry `json:"surveillances"`
	TotalSurveillances int                 `json:"total_surveillances"`
	FileStem           string              `json:"file_stem"`
}

// RosterEntry is one invigilator listed on a session planning.
type RosterEntry struct {
	TeacherID TeacherID `json:"teacher_id"`
	Name      string    `json:"enseignant"`
	Grade     string    `json:"grade"`
}

// SessionContext is the render input for one (date, seance) planning sheet.
type SessionContext struct {
	Semester          string        `json:"semestre"`
	Session           string        `json:"session"`
	AcademicYear      string        `json:"annee_academique"`
	Date              string        `json:"date"`
	Seance            Seance        `json:"seance"`
	Time              string        `json:"heure"`
	Invigilators      []RosterEntry `json:"surveillances"`
	TotalInvigilators int           `json:"total_surveillants"`
	RoomCount         int           `json:"nb_salles"`
	FileStem          string        `json:"file_stem"`
}

// GeneratedDocument references a rendered and stored document.
type GeneratedDocument struct {
	ExportID  string    `json:"export_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DocumentBatch is the result of one generation call.
type DocumentBatch struct {
	Kind      DocumentKind        `json:"kind"`
	SessionID int64               `json:"session_id"`
	Report    BatchReport         `json:"report"`
	Documents []GeneratedDocument `json:"documents"`
}

// ExportRecord logs a stored file for a session.
type ExportRecord struct {
	ID        string    `db:"id" json:"id"`
	SessionID int64     `db:"session_id" json:"session_id"`
	Kind      string    `db:"kind" json:"kind"`
	FilePath  string    `db:"file_path" json:"file_path"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
