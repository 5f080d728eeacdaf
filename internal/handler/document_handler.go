package handler

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/invigilation-api/internal/dto"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/service"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/response"
)

type documentService interface {
	Generate(ctx context.Context, sessionID int64, kind models.DocumentKind) (*models.DocumentBatch, error)
	ExportWorkbook(ctx context.Context, sessionID int64, format string) (*service.WorkbookFile, error)
	ListExports(ctx context.Context, sessionID int64, page, pageSize int) ([]models.ExportRecord, *models.Pagination, error)
	ResolveDownload(ctx context.Context, token string) (*service.DocumentDownload, error)
}

type documentJobService interface {
	CreateJob(ctx context.Context, req dto.DocumentJobRequest, actorID string) (*dto.DocumentJobResponse, error)
	GetStatus(ctx context.Context, id string) (*dto.DocumentJobStatusResponse, error)
}

// DocumentHandler exposes document generation, exports and signed downloads.
type DocumentHandler struct {
	documents documentService
	jobs      documentJobService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents documentService, jobs documentJobService) *DocumentHandler {
	return &DocumentHandler{documents: documents, jobs: jobs}
}

// Generate godoc
// @Summary Generate documents of a session synchronously
// @Tags Documents
// @Produce json
// @Param id path int true "Session ID"
// @Param kind path string true "convocation or planning"
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope "TEMPLATE_MISSING"
// @Router /sessions/{id}/documents/{kind} [post]
func (h *DocumentHandler) Generate(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	batch, err := h.documents.Generate(c.Request.Context(), id, models.DocumentKind(strings.ToLower(c.Param("kind"))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// CreateJob godoc
// @Summary Queue background document generation
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.DocumentJobRequest true "Job request"
// @Success 202 {object} response.Envelope
// @Router /documents/jobs [post]
func (h *DocumentHandler) CreateJob(c *gin.Context) {
	var req dto.DocumentJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	job, err := h.jobs.CreateJob(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Document job status
// @Tags Documents
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /documents/jobs/{id} [get]
func (h *DocumentHandler) JobStatus(c *gin.Context) {
	status, err := h.jobs.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a generated document
// @Tags Documents
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /documents/download/{token} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	download, err := h.documents.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	size := int64(-1)
	if info, err := download.File.Stat(); err == nil {
		size = info.Size()
	}
	response.Attachment(c, download.Filename, download.ContentType, size, download.File)
}

// ListExports godoc
// @Summary List files generated for a session
// @Tags Documents
// @Produce json
// @Param id path int true "Session ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/exports [get]
func (h *DocumentHandler) ListExports(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	records, page, err := h.documents.ListExports(c.Request.Context(), id, intQuery(c, "page", 1), intQuery(c, "page_size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, page)
}

// PlanningXLSX godoc
// @Summary Planning overview workbook
// @Tags Documents
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Session ID"
// @Success 200 {file} file
// @Router /sessions/{id}/planning.xlsx [get]
func (h *DocumentHandler) PlanningXLSX(c *gin.Context) {
	h.workbook(c, service.FormatXLSX)
}

// PlanningCSV godoc
// @Summary Planning overview as CSV (detailed sheet)
// @Tags Documents
// @Produce text/csv
// @Param id path int true "Session ID"
// @Success 200 {file} file
// @Router /sessions/{id}/planning.csv [get]
func (h *DocumentHandler) PlanningCSV(c *gin.Context) {
	h.workbook(c, service.FormatCSV)
}

func (h *DocumentHandler) workbook(c *gin.Context, format string) {
	id, err := sessionIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.documents.ExportWorkbook(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, int64(len(file.Data)), bytes.NewReader(file.Data))
}
