package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ValidationVerdict is the outcome of validating one spreadsheet against a file kind.
type ValidationVerdict struct {
	Valid    bool          `json:"is_valid"`
	Kind     string        `json:"kind"`
	Errors   []string      `json:"errors"`
	Warnings []string      `json:"warnings"`
	FileInfo FileInfo      `json:"file_info"`
	Failure  *FailureInfo  `json:"failure,omitempty"`
	Columns  *ColumnReport `json:"columns,omitempty"`
}

// FileInfo summarises the parsed table.
type FileInfo struct {
	RowCount    int            `json:"row_count"`
	ColumnCount int            `json:"column_count"`
	ColumnNames []string       `json:"column_names"`
	NullCounts  map[string]int `json:"null_counts"`
}

// FailureInfo names the structural or schema failure that stopped validation early.
type FailureInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ColumnReport details a required-column mismatch.
type ColumnReport struct {
	Missing  []string `json:"missing"`
	Required []string `json:"required"`
	Actual   []string `json:"actual"`
}

// Value marshals the verdict to JSON for persistence.
func (v ValidationVerdict) Value() (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal verdict: %w", err)
	}
	return data, nil
}

// Scan unmarshals a JSON column into the verdict.
func (v *ValidationVerdict) Scan(value interface{}) error {
	if value == nil {
		*v = ValidationVerdict{}
		return nil
	}
	var data []byte
	switch raw := value.(type) {
	case []byte:
		data = raw
	case string:
		data = []byte(raw)
	default:
		return fmt.Errorf("unsupported type %T for ValidationVerdict", value)
	}
	if len(data) == 0 {
		*v = ValidationVerdict{}
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal verdict: %w", err)
	}
	return nil
}
