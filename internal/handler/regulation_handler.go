package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusnotes/notes-api/internal/models"
	"github.com/campusnotes/notes-api/internal/service"
	appErrors "github.com/campusnotes/notes-api/pkg/errors"
	"github.com/campusnotes/notes-api/pkg/response"
)

// RegulationHandler handles regulation taxonomy endpoints.
type RegulationHandler struct {
	service *service.RegulationService
	cascade *service.CascadeService
}

// NewRegulationHandler constructs a regulation handler.
func NewRegulationHandler(svc *service.RegulationService, cascade *service.CascadeService) *RegulationHandler {
	return &RegulationHandler{service: svc, cascade: cascade}
}

// List godoc
// @Summary List regulations
// @Tags Regulations
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/regulations [get]
func (h *RegulationHandler) List(c *gin.Context) {
	var filter models.RegulationFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	regulations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regulations, pagination)
}

// Get godoc
// @Summary Get regulation by id
// @Tags Regulations
// @Produce json
// @Param id path string true "Regulation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/regulations/{id} [get]
func (h *RegulationHandler) Get(c *gin.Context) {
	regulation, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regulation, nil)
}

// Create godoc
// @Summary Create regulation
// @Tags Regulations
// @Accept json
// @Produce json
// @Param payload body service.CreateRegulationRequest true "Regulation payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/regulations [post]
func (h *RegulationHandler) Create(c *gin.Context) {
	var req service.CreateRegulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid regulation payload"))
		return
	}

	regulation, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, regulation)
}

// Update godoc
// @Summary Update regulation
// @Tags Regulations
// @Accept json
// @Produce json
// @Param id path string true "Regulation ID"
// @Param payload body service.UpdateRegulationRequest true "Regulation payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/regulations/{id} [put]
func (h *RegulationHandler) Update(c *gin.Context) {
	var req service.UpdateRegulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid regulation payload"))
		return
	}

	regulation, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regulation, nil)
}

// Delete godoc
// @Summary Delete regulation and all dependents
// @Description Removes the regulation with every branch, subject, note and stored file beneath it
// @Tags Regulations
// @Produce json
// @Param id path string true "Regulation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/regulations/{id} [delete]
func (h *RegulationHandler) Delete(c *gin.Context) {
	summary, err := h.cascade.DeleteRegulation(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
