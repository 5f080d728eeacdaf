package dto

import "github.com/noah-isme/invigilation-api/internal/models"

// DocumentJobRequest captures POST /documents/jobs payload.
type DocumentJobRequest struct {
	SessionID int64  `json:"session_id" validate:"required,gt=0"`
	Kind      string `json:"kind" validate:"required,oneof=convocation planning"`
}

// DocumentJobResponse is returned after enqueueing a generation job.
type DocumentJobResponse struct {
	ID       string           `json:"id"`
	Status   models.JobStatus `json:"status"`
	Progress int              `json:"progress"`
}

// DocumentJobStatusResponse exposes job progress and, once finished, the batch outcome.
type DocumentJobStatusResponse struct {
	ID       string             `json:"id"`
	Status   models.JobStatus   `json:"status"`
	Progress int                `json:"progress"`
	Summary  *models.JobSummary `json:"summary,omitempty"`
	Error    *string            `json:"error,omitempty"`
}

// ContextsResponse wraps aggregation output with the failures reported for skipped teachers.
type ContextsResponse struct {
	Contexts interface{}          `json:"contexts"`
	Failures []models.ItemFailure `json:"failures"`
}
