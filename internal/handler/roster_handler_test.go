package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRosterHandler(nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/roster/generate", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRosterHandlerMonthViewRejectsBadQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRosterHandler(nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/roster?month=13&year=2025", nil)
	c.Request = req

	handler.MonthView(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "month")
}

func TestRosterHandlerSwapInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRosterHandler(nil, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/schedules/s1/swap", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.Swap(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
