package models

import "time"

// ImportState is a step of the import lifecycle.
type ImportState string

const (
	ImportUploaded  ImportState = "uploaded"
	ImportValidated ImportState = "validated"
	ImportRejected  ImportState = "rejected"
	ImportPersisted ImportState = "persisted"
	ImportExpired   ImportState = "expired"
)

// ImportRecord tracks one uploaded spreadsheet from upload to persistence.
type ImportRecord struct {
	ID         string            `db:"id" json:"id"`
	SessionID  int64             `db:"session_id" json:"session_id"`
	Kind       string            `db:"kind" json:"kind"`
	FileName   string            `db:"file_name" json:"file_name"`
	StoredPath string            `db:"stored_path" json:"-"`
	State      ImportState       `db:"state" json:"state"`
	Verdict    ValidationVerdict `db:"verdict" json:"verdict"`
	Persisted  *BatchReport      `db:"-" json:"persisted,omitempty"`
	CreatedBy  string            `db:"created_by" json:"created_by"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}
