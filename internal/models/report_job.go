package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus captures background job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusFinished   JobStatus = "FINISHED"
	JobStatusFailed     JobStatus = "FAILED"
)

// DocumentJob is a persisted request to generate a session's documents in the background.
type DocumentJob struct {
	ID           string       `db:"id" json:"id"`
	SessionID    int64        `db:"session_id" json:"session_id"`
	Kind         DocumentKind `db:"kind" json:"kind"`
	Status       JobStatus    `db:"status" json:"status"`
	Progress     int          `db:"progress" json:"progress"`
	Summary      JobSummary   `db:"summary" json:"summary"`
	CreatedBy    string       `db:"created_by" json:"created_by"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error_message,omitempty"`
}

// JobSummary stores the batch outcome of a finished job as JSONB.
type JobSummary struct {
	Report    BatchReport         `json:"report"`
	Documents []GeneratedDocument `json:"documents,omitempty"`
}

// Value marshals the summary to JSON for persistence.
func (s JobSummary) Value() (driver.Value, error) {
	if s.Report.Failures == nil {
		s.Report.Failures = []ItemFailure{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal job summary: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the summary.
func (s *JobSummary) Scan(value interface{}) error {
	if value == nil {
		*s = JobSummary{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for JobSummary", value)
	}
	if len(data) == 0 {
		*s = JobSummary{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal job summary: %w", err)
	}
	return nil
}
