package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/internal/service"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
	"github.com/ieab-app/escala-api/pkg/response"
)

// VolunteerHandler wires volunteer management to HTTP routes.
type VolunteerHandler struct {
	volunteers *service.VolunteerService
}

// NewVolunteerHandler constructs a new VolunteerHandler.
func NewVolunteerHandler(volunteers *service.VolunteerService) *VolunteerHandler {
	return &VolunteerHandler{volunteers: volunteers}
}

// List godoc
// @Summary List volunteers
// @Tags Volunteers
// @Produce json
// @Param search query string false "Search by name or phone"
// @Param role query string false "Filter by role (professor/auxiliar/admin)"
// @Param active query bool false "Filter by active status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /volunteers [get]
func (h *VolunteerHandler) List(c *gin.Context) {
	query := dto.VolunteerListQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Role:   c.Query("role"),
	}
	if active := c.Query("active"); active != "" {
		switch strings.ToLower(active) {
		case "true":
			val := true
			query.Active = &val
		case "false":
			val := false
			query.Active = &val
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		query.PageSize = size
	}

	volunteers, total, err := h.volunteers.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, volunteers, pagination)
}

// Get godoc
// @Summary Get volunteer detail
// @Tags Volunteers
// @Produce json
// @Param id path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{id} [get]
func (h *VolunteerHandler) Get(c *gin.Context) {
	volunteer, err := h.volunteers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteer, nil)
}

// Create godoc
// @Summary Register volunteer
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param payload body dto.CreateVolunteerRequest true "Volunteer payload"
// @Success 201 {object} response.Envelope
// @Router /volunteers [post]
func (h *VolunteerHandler) Create(c *gin.Context) {
	var req dto.CreateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid volunteer payload"))
		return
	}
	volunteer, err := h.volunteers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, volunteer)
}

// Update godoc
// @Summary Update volunteer
// @Tags Volunteers
// @Accept json
// @Produce json
// @Param id path string true "Volunteer ID"
// @Param payload body dto.UpdateVolunteerRequest true "Volunteer payload"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{id} [put]
func (h *VolunteerHandler) Update(c *gin.Context) {
	var req dto.UpdateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid volunteer payload"))
		return
	}
	volunteer, err := h.volunteers.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteer, nil)
}

// ResetPIN godoc
// @Summary Reset a volunteer's PIN
// @Tags Volunteers
// @Accept json
// @Param id path string true "Volunteer ID"
// @Param payload body dto.ResetPINRequest true "PIN payload"
// @Success 204
// @Router /volunteers/{id}/pin [put]
func (h *VolunteerHandler) ResetPIN(c *gin.Context) {
	var req dto.ResetPINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid PIN payload"))
		return
	}
	if err := h.volunteers.ResetPIN(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Remove volunteer
// @Description Deletes the record, or deactivates it when schedule history still references it
// @Tags Volunteers
// @Produce json
// @Param id path string true "Volunteer ID"
// @Success 200 {object} response.Envelope
// @Router /volunteers/{id} [delete]
func (h *VolunteerHandler) Delete(c *gin.Context) {
	result, err := h.volunteers.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
