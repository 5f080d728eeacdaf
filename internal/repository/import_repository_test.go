package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/invigilation-api/internal/models"
)

func newImportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var importRowColumns = []string{"id", "session_id", "kind", "file_name", "stored_path", "state", "verdict", "created_by", "created_at", "updated_at"}

func TestImportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newImportRepoMock(t)
	defer cleanup()
	repo := NewImportRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO imports (id, session_id, kind, file_name, stored_path, state, verdict, created_by, created_at, updated_at)")).
		WithArgs(sqlmock.AnyArg(), int64(7), "teachers", "enseignants.xlsx", "imports/abc.xlsx", "uploaded", sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	record := &models.ImportRecord{SessionID: 7, Kind: "teachers", FileName: "enseignants.xlsx", StoredPath: "imports/abc.xlsx", CreatedBy: "user-1"}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, models.ImportUploaded, record.State)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM imports WHERE id = $1")).
		WithArgs(record.ID).
		WillReturnRows(sqlmock.NewRows(importRowColumns).
			AddRow(record.ID, 7, "teachers", "enseignants.xlsx", "imports/abc.xlsx", "validated", `{"is_valid":true,"kind":"teachers","errors":[],"warnings":[],"file_info":{"row_count":2}}`, "user-1", now, now))

	fetched, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportValidated, fetched.State)
	assert.True(t, fetched.Verdict.Valid)
	assert.Equal(t, 2, fetched.Verdict.FileInfo.RowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newImportRepoMock(t)
	defer cleanup()
	repo := NewImportRepository(db)

	state := models.ImportPersisted
	mock.ExpectExec(regexp.QuoteMeta("UPDATE imports SET state = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(state, sqlmock.AnyArg(), "imp-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "imp-1", UpdateImportParams{State: &state}))
	require.NoError(t, repo.Update(context.Background(), "imp-1", UpdateImportParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRepositoryListStale(t *testing.T) {
	db, mock, cleanup := newImportRepoMock(t)
	defer cleanup()
	repo := NewImportRepository(db)

	cutoff := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE state IN ('validated', 'rejected') AND updated_at < $1 ORDER BY updated_at ASC LIMIT $2")).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows(importRowColumns).
			AddRow("imp-1", 7, "slots", "creneaux.xlsx", "imports/imp-1.xlsx", "rejected", nil, "user-1", cutoff, cutoff))

	records, err := repo.ListStale(context.Background(), cutoff, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ImportRejected, records[0].State)
	require.NoError(t, mock.ExpectationsWereMet())
}
