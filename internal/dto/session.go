package dto

// CreateSessionRequest defines payload for registering an exam session.
type CreateSessionRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	AcademicYear string `json:"academic_year" validate:"required,max=20"`
	Semester     string `json:"semester" validate:"required,max=20"`
}
