package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusnotes/notes-api/internal/dto"
	"github.com/campusnotes/notes-api/internal/middleware"
	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/internal/service"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
)

type noteServiceMock struct {
	uploadResp *dto.UploadURLResponse
	uploadErr  error
	createResp *models.Note
	createErr  error
	listResp   []dto.NoteView
	listErr    error
	deleteErr  error

	lastUploader  string
	lastSubjectID string
	lastActor     *models.User
	deleteCalled  bool
}

func (m *noteServiceMock) GenerateUploadURL(ctx context.Context, req service.UploadURLRequest) (*dto.UploadURLResponse, error) {
	return m.uploadResp, m.uploadErr
}

func (m *noteServiceMock) Create(ctx context.Context, uploaderID string, req service.CreateNoteRequest) (*models.Note, error) {
	m.lastUploader = uploaderID
	return m.createResp, m.createErr
}

func (m *noteServiceMock) ListBySubject(ctx context.Context, subjectID string) ([]dto.NoteView, error) {
	m.lastSubjectID = subjectID
	return m.listResp, m.listErr
}

func (m *noteServiceMock) ListMyUploads(ctx context.Context, facultyID string) ([]dto.NoteView, error) {
	m.lastUploader = facultyID
	return m.listResp, m.listErr
}

func (m *noteServiceMock) Delete(ctx context.Context, id string, actor *models.User) error {
	m.deleteCalled = true
	m.lastActor = actor
	return m.deleteErr
}

type noteArchiverMock struct {
	data    []byte
	err     error
	lastIDs []string
}

func (m *noteArchiverMock) BuildArchive(ctx context.Context, noteIDs []string) ([]byte, error) {
	m.lastIDs = noteIDs
	return m.data, m.err
}

func facultyClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "fac-1", Role: models.RoleFaculty, Email: "a@campus.edu", FullName: "A Prof"}
}

func TestNoteHandlerCreateUsesCallerAsUploader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &noteServiceMock{createResp: &models.Note{ID: "note-1", Title: "Unit 1"}}
	handler := NewNoteHandler(mockSvc, &noteArchiverMock{})

	payload, _ := json.Marshal(service.CreateNoteRequest{Title: "Unit 1", SubjectID: "sub-1", FileKey: "uploads/unit1.pdf"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notes", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, facultyClaims())

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "fac-1", mockSvc.lastUploader)
}

func TestNoteHandlerCreateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNoteHandler(&noteServiceMock{}, &noteArchiverMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notes", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNoteHandlerListBySubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &noteServiceMock{listResp: []dto.NoteView{{ID: "note-1"}}}
	handler := NewNoteHandler(mockSvc, &noteArchiverMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/notes/subject/sub-9", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "subjectId", Value: "sub-9"}}
	c.Set(middleware.ContextUserKey, facultyClaims())

	handler.ListBySubject(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub-9", mockSvc.lastSubjectID)
}

func TestNoteHandlerDeletePassesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &noteServiceMock{}
	handler := NewNoteHandler(mockSvc, &noteArchiverMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/notes/note-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "note-1"}}
	c.Set(middleware.ContextUserKey, facultyClaims())

	handler.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, mockSvc.deleteCalled)
	require.NotNil(t, mockSvc.lastActor)
	assert.Equal(t, "fac-1", mockSvc.lastActor.ID)
	assert.Equal(t, models.RoleFaculty, mockSvc.lastActor.Role)
}

func TestNoteHandlerDownloadZip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockArchive := &noteArchiverMock{data: []byte("PK\x03\x04zipbytes")}
	handler := NewNoteHandler(&noteServiceMock{}, mockArchive)

	payload, _ := json.Marshal(DownloadZipRequest{NoteIDs: []string{"note-1", "note-2"}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notes/download-zip", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, facultyClaims())

	handler.DownloadZip(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"note-1", "note-2"}, mockArchive.lastIDs)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=notes.zip", w.Header().Get("Content-Disposition"))
	assert.Equal(t, mockArchive.data, w.Body.Bytes())
}

func TestNoteHandlerDownloadZipEmptySelection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockArchive := &noteArchiverMock{err: appErrors.ErrEmptySelection}
	handler := NewNoteHandler(&noteServiceMock{}, mockArchive)

	payload, _ := json.Marshal(DownloadZipRequest{NoteIDs: []string{}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notes/download-zip", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, facultyClaims())

	handler.DownloadZip(c)
	require.Equal(t, appErrors.ErrEmptySelection.Status, w.Code)
}
