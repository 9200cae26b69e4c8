package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusnotes/notes-api/internal/dto"
	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/internal/service"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
	"github.com/campusnotes/notes-api/pkg/response"
)

type noteService interface {
	GenerateUploadURL(ctx context.Context, req service.UploadURLRequest) (*dto.UploadURLResponse, error)
	Create(ctx context.Context, uploaderID string, req service.CreateNoteRequest) (*models.Note, error)
	ListBySubject(ctx context.Context, subjectID string) ([]dto.NoteView, error)
	ListMyUploads(ctx context.Context, facultyID string) ([]dto.NoteView, error)
	Delete(ctx context.Context, id string, actor *models.User) error
}

type noteArchiver interface {
	BuildArchive(ctx context.Context, noteIDs []string) ([]byte, error)
}

// NoteHandler handles note upload, listing, deletion and archive downloads.
type NoteHandler struct {
	notes   noteService
	archive noteArchiver
}

// NewNoteHandler constructs a note handler.
func NewNoteHandler(notes noteService, archive noteArchiver) *NoteHandler {
	return &NoteHandler{notes: notes, archive: archive}
}

// DownloadZipRequest selects the notes to bundle into a zip archive.
type DownloadZipRequest struct {
	NoteIDs []string `json:"note_ids"`
}

// UploadURL godoc
// @Summary Request a presigned upload URL
// @Description Returns a short-lived URL the client uploads the file to, plus the file key to register afterwards
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.UploadURLRequest true "Upload request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /notes/upload-url [post]
func (h *NoteHandler) UploadURL(c *gin.Context) {
	var req service.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload request"))
		return
	}

	result, err := h.notes.GenerateUploadURL(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Register an uploaded note
// @Description Records metadata for a file already uploaded to storage and appends the caller's upload ledger
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.CreateNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	note, err := h.notes.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// ListBySubject godoc
// @Summary List notes for a subject
// @Tags Notes
// @Produce json
// @Param subjectId path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notes/subject/{subjectId} [get]
func (h *NoteHandler) ListBySubject(c *gin.Context) {
	notes, err := h.notes.ListBySubject(c.Request.Context(), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, nil)
}

// MyUploads godoc
// @Summary List the caller's uploaded notes
// @Tags Notes
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notes/my-uploads [get]
func (h *NoteHandler) MyUploads(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	notes, err := h.notes.ListMyUploads(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, nil)
}

// Delete godoc
// @Summary Delete a note
// @Description Faculty may delete their own uploads; admins may delete any note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	actor := actorFromContext(c)
	if actor == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.notes.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "note deleted"}, nil)
}

// DownloadZip godoc
// @Summary Download selected notes as a zip archive
// @Tags Notes
// @Accept json
// @Produce application/zip
// @Param payload body handler.DownloadZipRequest true "Note selection"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /notes/download-zip [post]
func (h *NoteHandler) DownloadZip(c *gin.Context) {
	var req DownloadZipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid archive request"))
		return
	}

	data, err := h.archive.BuildArchive(c.Request.Context(), req.NoteIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", service.ArchiveName))
	c.Data(http.StatusOK, "application/zip", data)
}
