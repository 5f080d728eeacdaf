package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/invigilation-api/internal/dto"
	"github.com/noah-isme/invigilation-api/internal/middleware"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/service"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

type documentServiceMock struct {
	kind     models.DocumentKind
	format   string
	batchErr error
	download *service.DocumentDownload
}

func (m *documentServiceMock) Generate(ctx context.Context, sessionID int64, kind models.DocumentKind) (*models.DocumentBatch, error) {
	m.kind = kind
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	return &models.DocumentBatch{Kind: kind, SessionID: sessionID, Report: models.BatchReport{Total: 1, SuccessCount: 1}}, nil
}

func (m *documentServiceMock) ExportWorkbook(ctx context.Context, sessionID int64, format string) (*service.WorkbookFile, error) {
	m.format = format
	return &service.WorkbookFile{Name: "planning_session_7." + format, ContentType: service.ContentTypeCSV, Data: []byte("a;b\n")}, nil
}

func (m *documentServiceMock) ListExports(ctx context.Context, sessionID int64, page, pageSize int) ([]models.ExportRecord, *models.Pagination, error) {
	return []models.ExportRecord{{ID: "e1"}}, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: 1}, nil
}

func (m *documentServiceMock) ResolveDownload(ctx context.Context, token string) (*service.DocumentDownload, error) {
	if m.download == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	return m.download, nil
}

type documentJobServiceMock struct {
	actor string
}

func (m *documentJobServiceMock) CreateJob(ctx context.Context, req dto.DocumentJobRequest, actorID string) (*dto.DocumentJobResponse, error) {
	m.actor = actorID
	return &dto.DocumentJobResponse{ID: "job-1", Status: models.JobStatusQueued}, nil
}

func (m *documentJobServiceMock) GetStatus(ctx context.Context, id string) (*dto.DocumentJobStatusResponse, error) {
	return &dto.DocumentJobStatusResponse{ID: id, Status: models.JobStatusFinished, Progress: 100}, nil
}

func TestDocumentHandlerGenerate(t *testing.T) {
	docs := &documentServiceMock{}
	h := NewDocumentHandler(docs, &documentJobServiceMock{})

	c, w := newJSONContext(http.MethodPost, "/sessions/7/documents/Convocation", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "kind", Value: "Convocation"}}
	h.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DocumentConvocation, docs.kind)

	docs.batchErr = appErrors.Clone(appErrors.ErrTemplateMissing, "template planning.yaml not found")
	c, w = newJSONContext(http.MethodPost, "/sessions/7/documents/planning", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "kind", Value: "planning"}}
	h.Generate(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "TEMPLATE_MISSING", decodeEnvelope(t, w)["error"].(map[string]interface{})["code"])
}

func TestDocumentHandlerJobs(t *testing.T) {
	jobs := &documentJobServiceMock{}
	h := NewDocumentHandler(&documentServiceMock{}, jobs)

	c, w := newJSONContext(http.MethodPost, "/documents/jobs", []byte(`{"session_id":7,"kind":"planning"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	h.CreateJob(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "admin-1", jobs.actor)

	c, w = newJSONContext(http.MethodGet, "/documents/jobs/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	h.JobStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "convocation_A.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3"), 0o644))
	file, err := os.Open(path)
	require.NoError(t, err)

	h := NewDocumentHandler(&documentServiceMock{download: &service.DocumentDownload{
		File:        file,
		Filename:    "convocation_A.pdf",
		ContentType: service.ContentTypePDF,
	}}, &documentJobServiceMock{})

	c, w := newJSONContext(http.MethodGet, "/documents/download/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	h.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.3", w.Body.String())
	assert.Equal(t, service.ContentTypePDF, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "convocation_A.pdf")

	h = NewDocumentHandler(&documentServiceMock{}, &documentJobServiceMock{})
	c, w = newJSONContext(http.MethodGet, "/documents/download/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDocumentHandlerWorkbookAndExports(t *testing.T) {
	docs := &documentServiceMock{}
	h := NewDocumentHandler(docs, &documentJobServiceMock{})

	c, w := newJSONContext(http.MethodGet, "/sessions/7/planning.csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.PlanningCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.FormatCSV, docs.format)
	assert.Equal(t, "a;b\n", w.Body.String())

	c, w = newJSONContext(http.MethodGet, "/sessions/7/exports?page=2&page_size=5", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.ListExports(c)
	require.Equal(t, http.StatusOK, w.Code)
	pagination := decodeEnvelope(t, w)["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(5), pagination["page_size"])
}
