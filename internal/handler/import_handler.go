package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/service"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/response"
)

type importService interface {
	Validate(ctx context.Context, name string, content io.Reader, kind string) models.ValidationVerdict
	Upload(ctx context.Context, in service.UploadInput) (*models.ImportRecord, error)
	Get(ctx context.Context, id string) (*models.ImportRecord, error)
	Verdict(ctx context.Context, id string) (models.ValidationVerdict, error)
	Persist(ctx context.Context, id string) (*models.ImportRecord, error)
}

// ImportHandler exposes spreadsheet validation and import endpoints.
type ImportHandler struct {
	imports importService
}

// NewImportHandler constructs the handler.
func NewImportHandler(imports importService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Upload godoc
// @Summary Upload a spreadsheet for a session
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx)"
// @Param kind formData string true "File kind (teachers, preferences, slots)"
// @Param session_id formData integer true "Exam session ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /imports [post]
func (h *ImportHandler) Upload(c *gin.Context) {
	sessionID, err := parsePositiveID(c.PostForm("session_id"), "session_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnreadableFile.Code, appErrors.ErrUnreadableFile.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	record, err := h.imports.Upload(c.Request.Context(), service.UploadInput{
		SessionID: sessionID,
		Kind:      strings.TrimSpace(c.PostForm("kind")),
		FileName:  header.Filename,
		Content:   file,
		ActorID:   actorID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Validate godoc
// @Summary Validate a spreadsheet without storing it
// @Tags Imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet (.xlsx)"
// @Param kind formData string true "File kind"
// @Success 200 {object} response.Envelope
// @Router /validations [post]
func (h *ImportHandler) Validate(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnreadableFile.Code, appErrors.ErrUnreadableFile.Status, "failed to open upload"))
		return
	}
	defer file.Close()

	verdict := h.imports.Validate(c.Request.Context(), header.Filename, file, strings.TrimSpace(c.PostForm("kind")))
	response.JSON(c, http.StatusOK, verdict, nil)
}

// Get godoc
// @Summary Get an import
// @Tags Imports
// @Produce json
// @Param id path string true "Import ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /imports/{id} [get]
func (h *ImportHandler) Get(c *gin.Context) {
	record, err := h.imports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Verdict godoc
// @Summary Get the validation verdict of an import
// @Tags Imports
// @Produce json
// @Param id path string true "Import ID"
// @Success 200 {object} response.Envelope
// @Router /imports/{id}/verdict [get]
func (h *ImportHandler) Verdict(c *gin.Context) {
	verdict, err := h.imports.Verdict(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict, nil)
}

// Persist godoc
// @Summary Persist the rows of a validated import
// @Tags Imports
// @Produce json
// @Param id path string true "Import ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /imports/{id}/persist [post]
func (h *ImportHandler) Persist(c *gin.Context) {
	record, err := h.imports.Persist(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
