package handler

import (
	"io"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campusnotes/notes-api/pkg/errors"
	"github.com/campusnotes/notes-api/pkg/response"
	"github.com/campusnotes/notes-api/pkg/storage"
)

// FilesHandler serves the signed upload/download routes backing the local
// storage driver. Not registered when the S3 driver is active.
type FilesHandler struct {
	store   *storage.LocalStore
	signer  *storage.Signer
	maxSize int64
}

// NewFilesHandler constructs a files handler. maxSize caps upload bodies in
// bytes; zero disables the cap.
func NewFilesHandler(store *storage.LocalStore, signer *storage.Signer, maxSize int64) *FilesHandler {
	return &FilesHandler{store: store, signer: signer, maxSize: maxSize}
}

// Upload godoc
// @Summary Upload a file body against a signed token
// @Tags Files
// @Accept octet-stream
// @Param token query string true "Signed upload token"
// @Success 201 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /files/upload [put]
func (h *FilesHandler) Upload(c *gin.Context) {
	key, _, err := h.signer.Verify(c.Query("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired upload token"))
		return
	}

	body := io.Reader(c.Request.Body)
	if h.maxSize > 0 {
		body = io.LimitReader(body, h.maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload body"))
		return
	}
	if h.maxSize > 0 && int64(len(data)) > h.maxSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size"))
		return
	}

	if err := h.store.Put(c.Request.Context(), key, data); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to store file"))
		return
	}
	response.Created(c, gin.H{"file_key": key, "size": len(data)})
}

// Download godoc
// @Summary Download a file body against a signed token
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /files/download [get]
func (h *FilesHandler) Download(c *gin.Context) {
	key, _, err := h.signer.Verify(c.Query("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, http.StatusUnauthorized, "invalid or expired download token"))
		return
	}

	data, err := h.store.Fetch(c.Request.Context(), key)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+path.Base(key))
	c.Data(http.StatusOK, "application/octet-stream", data)
}
