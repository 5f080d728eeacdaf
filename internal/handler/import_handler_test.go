package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/invigilation-api/internal/middleware"
	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/service"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

type importServiceMock struct {
	uploaded  service.UploadInput
	content   string
	record    *models.ImportRecord
	err       error
	validated string
}

func (m *importServiceMock) Validate(ctx context.Context, name string, content io.Reader, kind string) models.ValidationVerdict {
	data, _ := io.ReadAll(content)
	m.validated = name + ":" + kind + ":" + string(data)
	return models.ValidationVerdict{Valid: false, Kind: kind, Errors: []string{"missing columns"}}
}

func (m *importServiceMock) Upload(ctx context.Context, in service.UploadInput) (*models.ImportRecord, error) {
	m.uploaded = in
	data, _ := io.ReadAll(in.Content)
	m.content = string(data)
	return m.record, m.err
}

func (m *importServiceMock) Get(ctx context.Context, id string) (*models.ImportRecord, error) {
	return m.record, m.err
}

func (m *importServiceMock) Verdict(ctx context.Context, id string) (models.ValidationVerdict, error) {
	if m.err != nil {
		return models.ValidationVerdict{}, m.err
	}
	return m.record.Verdict, nil
}

func (m *importServiceMock) Persist(ctx context.Context, id string) (*models.ImportRecord, error) {
	return m.record, m.err
}

func newJSONContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newMultipartContext(t *testing.T, path string, fields map[string]string, fileName, fileBody string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(fileBody))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestImportHandlerUpload(t *testing.T) {
	mock := &importServiceMock{record: &models.ImportRecord{ID: "imp-1", State: models.ImportValidated}}
	h := NewImportHandler(mock)

	c, w := newMultipartContext(t, "/imports", map[string]string{"kind": " teachers ", "session_id": "7"}, "enseignants.xlsx", "xlsx-bytes")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	h.Upload(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(7), mock.uploaded.SessionID)
	assert.Equal(t, "teachers", mock.uploaded.Kind)
	assert.Equal(t, "enseignants.xlsx", mock.uploaded.FileName)
	assert.Equal(t, "admin-1", mock.uploaded.ActorID)
	assert.Equal(t, "xlsx-bytes", mock.content)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "validated", data["state"])
}

func TestImportHandlerUploadBadInput(t *testing.T) {
	h := NewImportHandler(&importServiceMock{})

	c, w := newMultipartContext(t, "/imports", map[string]string{"kind": "teachers", "session_id": "abc"}, "a.xlsx", "x")
	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newMultipartContext(t, "/imports", map[string]string{"kind": "teachers", "session_id": "7"}, "", "")
	h.Upload(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportHandlerValidateIsStateless(t *testing.T) {
	mock := &importServiceMock{}
	h := NewImportHandler(mock)

	c, w := newMultipartContext(t, "/validations", map[string]string{"kind": "slots"}, "planning.xlsx", "data")
	h.Validate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "planning.xlsx:slots:data", mock.validated)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["is_valid"])
}

func TestImportHandlerPersistMapsErrors(t *testing.T) {
	mock := &importServiceMock{err: appErrors.Clone(appErrors.ErrInvalidTransition, "import is rejected")}
	h := NewImportHandler(mock)

	c, w := newJSONContext(http.MethodPost, "/imports/imp-1/persist", nil)
	c.Params = gin.Params{{Key: "id", Value: "imp-1"}}
	h.Persist(c)

	require.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_TRANSITION", errBody["code"])
}

func TestImportHandlerGetAndVerdict(t *testing.T) {
	mock := &importServiceMock{record: &models.ImportRecord{ID: "imp-1", Verdict: models.ValidationVerdict{Valid: true, Kind: "teachers"}}}
	h := NewImportHandler(mock)

	c, w := newJSONContext(http.MethodGet, "/imports/imp-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "imp-1"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newJSONContext(http.MethodGet, "/imports/imp-1/verdict", nil)
	c.Params = gin.Params{{Key: "id", Value: "imp-1"}}
	h.Verdict(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["is_valid"])
}
