package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ieab-app/escala-api/internal/service"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
	"github.com/ieab-app/escala-api/pkg/response"
)

// ExportHandler serves roster exports.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs a new ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// PDF godoc
// @Summary Download the month roster as PDF
// @Tags Exports
// @Produce application/pdf
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Success 200 {file} binary
// @Router /exports/pdf [get]
func (h *ExportHandler) PDF(c *gin.Context) {
	if !h.exports.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled"))
		return
	}
	month, year, err := monthYearFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, filename, err := h.exports.PDF(c.Request.Context(), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// WhatsApp godoc
// @Summary Month roster as a WhatsApp-ready message
// @Tags Exports
// @Produce json
// @Param month query int true "Month (1-12)"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /exports/whatsapp [get]
func (h *ExportHandler) WhatsApp(c *gin.Context) {
	if !h.exports.Enabled() {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled"))
		return
	}
	month, year, err := monthYearFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	text, err := h.exports.WhatsApp(c.Request.Context(), month, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"text": text}, nil)
}
