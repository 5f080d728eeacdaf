package models

import "time"

// ExamSession describes an exam session; its fields head every generated document.
type ExamSession struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     string    `db:"semester" json:"semester"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
