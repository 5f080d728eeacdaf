package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/invigilation-api/internal/dto"
	"github.com/noah-isme/invigilation-api/internal/models"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

type sessionServiceMock struct {
	created dto.CreateSessionRequest
}

func (m *sessionServiceMock) Create(ctx context.Context, req dto.CreateSessionRequest) (*models.ExamSession, error) {
	m.created = req
	return &models.ExamSession{ID: 1, Name: req.Name}, nil
}

func (m *sessionServiceMock) Get(ctx context.Context, id int64) (*models.ExamSession, error) {
	if id != 7 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return &models.ExamSession{ID: 7}, nil
}

func (m *sessionServiceMock) List(ctx context.Context) ([]models.ExamSession, error) {
	return []models.ExamSession{{ID: 7}}, nil
}

type contextBuilderMock struct {
	index models.AssignmentIndex
}

func (m *contextBuilderMock) TeacherContexts(ctx context.Context, sessionID int64, index models.AssignmentIndex) ([]models.TeacherContext, []models.ItemFailure, error) {
	m.index = index
	return []models.TeacherContext{{TeacherID: 1001}}, []models.ItemFailure{{Item: "4242", Code: "UNKNOWN_TEACHER"}}, nil
}

func (m *contextBuilderMock) SessionContexts(ctx context.Context, sessionID int64, index models.AssignmentIndex) ([]models.SessionContext, []models.ItemFailure, error) {
	m.index = index
	return []models.SessionContext{}, nil, nil
}

func TestSessionHandlerCreateAndGet(t *testing.T) {
	sessions := &sessionServiceMock{}
	h := NewSessionHandler(sessions, &contextBuilderMock{}, nil)

	c, w := newJSONContext(http.MethodPost, "/sessions", []byte(`{"name":"Principale","academic_year":"2024/2025","semester":"S1"}`))
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2024/2025", sessions.created.AcademicYear)

	c, w = newJSONContext(http.MethodGet, "/sessions/8", nil)
	c.Params = gin.Params{{Key: "id", Value: "8"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newJSONContext(http.MethodGet, "/sessions/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerStoredContexts(t *testing.T) {
	builder := &contextBuilderMock{}
	h := NewSessionHandler(&sessionServiceMock{}, builder, nil)

	c, w := newJSONContext(http.MethodGet, "/sessions/7/contexts/teachers", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.TeacherContexts(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, builder.index)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Len(t, data["contexts"], 1)
	assert.Len(t, data["failures"], 1)
}

func TestSessionHandlerSuppliedIndex(t *testing.T) {
	builder := &contextBuilderMock{}
	h := NewSessionHandler(&sessionServiceMock{}, builder, nil)

	body := []byte(`{"1001":{"surveillant":[{"date":"2025-01-15","time":"08:30","seance":"S1"}]},"x1":{"surveillant":[]}}`)
	c, w := newJSONContext(http.MethodPost, "/sessions/7/contexts/sessions", body)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.SessionContexts(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, builder.index, models.TeacherID(1001))
	assert.Len(t, builder.index[1001][models.RoleInvigilator], 1)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	failures := data["failures"].([]interface{})
	require.Len(t, failures, 1)
	assert.Equal(t, "INVALID_IDENTIFIER", failures[0].(map[string]interface{})["code"])

	c, w = newJSONContext(http.MethodPost, "/sessions/7/contexts/sessions", []byte(`[1,2]`))
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.SessionContexts(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
