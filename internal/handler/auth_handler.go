package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieab-app/escala-api/internal/models"
	"github.com/ieab-app/escala-api/internal/service"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
	"github.com/ieab-app/escala-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	auth       *service.AuthService
	volunteers *service.VolunteerService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(auth *service.AuthService, volunteers *service.VolunteerService) *AuthHandler {
	return &AuthHandler{auth: auth, volunteers: volunteers}
}

// Login godoc
// @Summary Authenticate volunteer
// @Description Authenticate by phone number and PIN
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// ChangePIN godoc
// @Summary Change own PIN
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePINRequest true "PIN payload"
// @Success 204
// @Failure 401 {object} response.Envelope
// @Router /auth/pin [put]
func (h *AuthHandler) ChangePIN(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid PIN payload"))
		return
	}

	if err := h.auth.ChangePIN(c.Request.Context(), claims.VolunteerID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Me godoc
// @Summary Current volunteer profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	volunteer, err := h.volunteers.Get(c.Request.Context(), claims.VolunteerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, volunteer, nil)
}
