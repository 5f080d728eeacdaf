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

func newDocumentJobRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var documentJobRowColumns = []string{"id", "session_id", "kind", "status", "progress", "summary", "created_by", "created_at", "finished_at", "error_message"}

func TestDocumentJobRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newDocumentJobRepoMock(t)
	defer cleanup()
	repo := NewDocumentJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO document_jobs")).
		WithArgs(sqlmock.AnyArg(), int64(7), "planning", "QUEUED", 0, sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.DocumentJob{SessionID: 7, Kind: models.DocumentPlanning, CreatedBy: "user-1"}
	require.NoError(t, repo.Create(context.Background(), job))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, session_id, kind, status, progress, summary, created_by, created_at, finished_at, error_message FROM document_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(sqlmock.NewRows(documentJobRowColumns).
			AddRow(job.ID, 7, "planning", "FINISHED", 100, `{"report":{"total":2,"success_count":1,"failures":[{"item":"planning_20250115_S1","code":"INTERNAL_ERROR","reason":"disk full"}]}}`, "user-1", time.Now(), time.Now(), nil))

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFinished, fetched.Status)
	assert.Equal(t, 2, fetched.Summary.Report.Total)
	require.Len(t, fetched.Summary.Report.Failures, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentJobRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newDocumentJobRepoMock(t)
	defer cleanup()
	repo := NewDocumentJobRepository(db)

	now := time.Now()
	status := models.JobStatusFinished
	progress := 100
	summary := models.JobSummary{Report: models.BatchReport{Total: 1, SuccessCount: 1}}
	mock.ExpectExec(regexp.QuoteMeta("UPDATE document_jobs SET status = $1, progress = $2, summary = $3, finished_at = $4 WHERE id = $5")).
		WithArgs(status, progress, sqlmock.AnyArg(), now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateDocumentJobParams{
		Status:     &status,
		Progress:   &progress,
		Summary:    &summary,
		FinishedAt: &now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentJobRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newDocumentJobRepoMock(t)
	defer cleanup()
	repo := NewDocumentJobRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM document_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(documentJobRowColumns).
			AddRow("job-1", 7, "convocation", "QUEUED", 0, nil, "user-1", time.Now(), nil, nil))

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.DocumentConvocation, jobs[0].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}
