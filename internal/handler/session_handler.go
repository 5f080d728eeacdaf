package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/aggregation"
	"github.com/noah-isme/invigilation-api/internal/dto"
	"github.com/noah-isme/invigilation-api/internal/models"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, req dto.CreateSessionRequest) (*models.ExamSession, error)
	Get(ctx context.Context, id int64) (*models.ExamSession, error)
	List(ctx context.Context) ([]models.ExamSession, error)
}

type contextBuilder interface {
	TeacherContexts(ctx context.Context, sessionID int64, index models.AssignmentIndex) ([]models.TeacherContext, []models.ItemFailure, error)
	SessionContexts(ctx context.Context, sessionID int64, index models.AssignmentIndex) ([]models.SessionContext, []models.ItemFailure, error)
}

// SessionHandler manages exam sessions and exposes their aggregated document contexts.
type SessionHandler struct {
	sessions sessionService
	contexts contextBuilder
	logger   *zap.Logger
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(sessions sessionService, contexts contextBuilder, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, contexts: contexts, logger: logger}
}

// Create godoc
// @Summary Create an exam session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// List godoc
// @Summary List exam sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Get godoc
// @Summary Get an exam session
// @Tags Sessions
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, err := sessionIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// TeacherContexts godoc
// @Summary Per-teacher convocation contexts
// @Description GET aggregates the stored assignments; POST aggregates the index supplied in the body.
// @Tags Contexts
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/contexts/teachers [get]
// @Router /sessions/{id}/contexts/teachers [post]
func (h *SessionHandler) TeacherContexts(c *gin.Context) {
	id, index, failures, ok := h.contextInput(c)
	if !ok {
		return
	}
	contexts, more, err := h.contexts.TeacherContexts(c.Request.Context(), id, index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ContextsResponse{Contexts: contexts, Failures: append(failures, more...)}, nil)
}

// SessionContexts godoc
// @Summary Per-(date, seance) planning contexts
// @Tags Contexts
// @Accept json
// @Produce json
// @Param id path int true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/contexts/sessions [get]
// @Router /sessions/{id}/contexts/sessions [post]
func (h *SessionHandler) SessionContexts(c *gin.Context) {
	id, index, failures, ok := h.contextInput(c)
	if !ok {
		return
	}
	contexts, more, err := h.contexts.SessionContexts(c.Request.Context(), id, index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ContextsResponse{Contexts: contexts, Failures: append(failures, more...)}, nil)
}

// contextInput reads the session id and, on POST, the supplied assignment index.
func (h *SessionHandler) contextInput(c *gin.Context) (int64, models.AssignmentIndex, []models.ItemFailure, bool) {
	id, err := sessionIDParam(c)
	if err != nil {
		response.Error(c, err)
		return 0, nil, nil, false
	}
	failures := []models.ItemFailure{}
	if c.Request.Method != http.MethodPost {
		return id, nil, failures, true
	}
	var raw aggregation.RawIndex
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "assignment index must be a JSON object keyed by teacher"))
		return 0, nil, nil, false
	}
	index, parsed := aggregation.ParseIndex(raw, h.logger)
	if index == nil {
		index = models.AssignmentIndex{}
	}
	return id, index, append(failures, parsed...), true
}
