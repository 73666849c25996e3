package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ieab-app/escala-api/internal/middleware"
	"github.com/ieab-app/escala-api/internal/models"
	appErrors "github.com/ieab-app/escala-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// monthYearFromQuery parses the month/year pair every roster endpoint takes.
func monthYearFromQuery(c *gin.Context) (int, int, error) {
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year < 2020 || year > 2100 {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "year must be a four digit year")
	}
	return month, year, nil
}
