package handler

import (
	"bytes"
	"context"
	"database/sql"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusdesk/request-portal-api/internal/middleware"
	"github.com/campusdesk/request-portal-api/internal/models"
	"github.com/campusdesk/request-portal-api/internal/service"
	"github.com/campusdesk/request-portal-api/pkg/storage"
)

func TestRequestHandlerUpdateStatusRequiresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/requests/req-1/status", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "lecturer-1", Role: models.RoleLecturer})

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerUpdateStatusRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/requests/req-1/status", bytes.NewReader([]byte(`{"status":"approved"}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.UpdateStatus(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCommentHandlerAddRequiresContent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCommentHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/requests/req-1/comments", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Add(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type acceptingRequestRepo struct{}

func (acceptingRequestRepo) Create(ctx context.Context, request *models.Request) error {
	request.ID = "req-new"
	return nil
}

func (acceptingRequestRepo) GetByID(ctx context.Context, id string) (*models.Request, error) {
	return nil, sql.ErrNoRows
}

func (acceptingRequestRepo) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	return nil, 0, nil
}

func (acceptingRequestRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.Request, error) {
	return nil, sql.ErrNoRows
}

func (acceptingRequestRepo) TransitionTx(ctx context.Context, id string, status models.RequestStatus, feedback *models.Comment) (*models.Request, error) {
	return nil, sql.ErrNoRows
}

func submitMultipartRequest(t *testing.T, handler *RequestHandler, requestType string) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	require.NoError(t, form.WriteField("request_type", requestType))
	require.NoError(t, form.WriteField("subject", "Grade appeal"))
	require.NoError(t, form.WriteField("description", "Please review"))
	require.NoError(t, form.WriteField("department_id", "dept-1"))
	part, err := form.CreateFormFile("attachment", "scan.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 stub"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/requests", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)
	return w
}

func storedFileCount(t *testing.T, dir string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestRequestHandlerCreateRemovesUploadOnRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	attachments := service.NewAttachmentService(nil, store, nil, nil, nil, 0)
	requests := service.NewRequestService(acceptingRequestRepo{}, nil, nil, nil, nil, nil)
	handler := NewRequestHandler(requests, attachments, nil)

	w := submitMultipartRequest(t, handler, "complaint")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, storedFileCount(t, dir), "rejected submission must not leave its upload behind")
}

func TestRequestHandlerCreateKeepsUploadOnSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	attachments := service.NewAttachmentService(nil, store, nil, nil, nil, 0)
	requests := service.NewRequestService(acceptingRequestRepo{}, nil, nil, nil, nil, nil)
	handler := NewRequestHandler(requests, attachments, nil)

	w := submitMultipartRequest(t, handler, "appeal")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, storedFileCount(t, dir))
}

func TestRequestHandlerDownloadRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/attachments/download", nil)
	c.Request = req

	handler.DownloadAttachment(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
