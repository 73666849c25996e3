package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/service"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
	"github.com/ieab-app/escala-api/pkg/response"
)

// UnavailabilityHandler lets volunteers manage their own absence declarations.
type UnavailabilityHandler struct {
	absences *service.UnavailabilityService
}

// NewUnavailabilityHandler constructs a new UnavailabilityHandler.
func NewUnavailabilityHandler(absences *service.UnavailabilityService) *UnavailabilityHandler {
	return &UnavailabilityHandler{absences: absences}
}

// ListMine godoc
// @Summary List own unavailabilities
// @Tags Unavailabilities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /unavailabilities [get]
func (h *UnavailabilityHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.absences.ListMine(c.Request.Context(), claims.VolunteerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Declare godoc
// @Summary Declare unavailability for an event
// @Tags Unavailabilities
// @Accept json
// @Produce json
// @Param payload body dto.CreateUnavailabilityRequest true "Unavailability payload"
// @Success 201 {object} response.Envelope
// @Router /unavailabilities [post]
func (h *UnavailabilityHandler) Declare(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateUnavailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid unavailability payload"))
		return
	}
	item, err := h.absences.Declare(c.Request.Context(), claims.VolunteerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Remove godoc
// @Summary Withdraw an unavailability
// @Tags Unavailabilities
// @Param id path string true "Unavailability ID"
// @Success 204
// @Router /unavailabilities/{id} [delete]
func (h *UnavailabilityHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.absences.Remove(c.Request.Context(), c.Param("id"), claims.VolunteerID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
