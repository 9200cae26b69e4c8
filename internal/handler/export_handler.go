package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusnotes/notes-api/internal/service"
	"github.com/campusnotes/notes-api/pkg/response"
)

// ExportHandler serves administrative catalog exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Catalog godoc
// @Summary Export the note catalog
// @Description Renders every note's metadata as CSV (default) or PDF
// @Tags Export
// @Produce text/csv
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/notes/export [get]
func (h *ExportHandler) Catalog(c *gin.Context) {
	result, err := h.service.ExportCatalog(c.Request.Context(), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
