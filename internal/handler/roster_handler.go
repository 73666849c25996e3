package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieab-app/escala-api/internal/dto"
	"github.com/ieab-app/escala-api/internal/middleware"
	"github.com/ieab-app/escala-api/internal/service"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
	"github.com/ieab-app/escala-api/pkg/response"
)

// RosterHandler exposes roster generation, viewing, publishing and swaps.
type RosterHandler struct {
	roster        *service.RosterService
	schedules     *service.ScheduleService
	substitutions *service.SubstitutionService
}

// NewRosterHandler constructs a new RosterHandler.
func NewRosterHandler(roster *service.RosterService, schedules *service.ScheduleService, substitutions *service.SubstitutionService) *RosterHandler {
	return &RosterHandler{roster: roster, schedules: schedules, substitutions: substitutions}
}

// EnsureEvents godoc
// @Summary Materialize the month's recurring events
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.EnsureEventsRequest true "Month payload"
// @Success 200 {object} response.Envelope
// @Router /roster/events [post]
func (h *RosterHandler) EnsureEvents(c *gin.Context) {
	var req dto.EnsureEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid month payload"))
		return
	}
	created, err := h.roster.EnsureEvents(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"created": created}, nil)
}

// Generate godoc
// @Summary Generate the month's roster
// @Description Rebuilds every assignment for the month. Unfillable slots are reported in logs, not treated as failure.
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRosterRequest true "Month payload"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /roster/generate [post]
func (h *RosterHandler) Generate(c *gin.Context) {
	var req dto.GenerateRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid month payload"))
		return
	}
	res, err := h.roster.Generate(c.Request.Context(), req)
	if err != nil {
		appErr := appErrors.FromError(err)
		if appErr.Code == appErrors.ErrPersistence.Code {
			// The run itself completed; persistence did not. Keep the
			// success flag in the body so clients see one contract.
			response.JSON(c, appErr.Status, dto.GenerateRosterResponse{Success: false, Message: appErr.Message}, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// MonthView godoc
// @Summary Month roster view
// @Tags Roster
// @Produce json
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /roster [get]
func (h *RosterHandler) MonthView(c *gin.Context) {
	month, year, err := monthYearFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, cached, err := h.schedules.MonthView(c.Request.Context(), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// Publish godoc
// @Summary Publish the month's roster
// @Tags Roster
// @Accept json
// @Param payload body dto.PublishRosterRequest true "Month payload"
// @Success 204
// @Router /roster/publish [post]
func (h *RosterHandler) Publish(c *gin.Context) {
	var req dto.PublishRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid month payload"))
		return
	}
	if err := h.schedules.Publish(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSubstitutes godoc
// @Summary List valid substitutes for an assignment
// @Tags Roster
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/substitutes [get]
func (h *RosterHandler) ListSubstitutes(c *gin.Context) {
	candidates, err := h.substitutions.ListSubstitutes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Swap godoc
// @Summary Swap the volunteer on an assignment
// @Tags Roster
// @Accept json
// @Param id path string true "Schedule ID"
// @Param payload body dto.SwapRequest true "Swap payload"
// @Success 204
// @Router /schedules/{id}/swap [put]
func (h *RosterHandler) Swap(c *gin.Context) {
	var req dto.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid swap payload"))
		return
	}
	if err := h.substitutions.Swap(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
