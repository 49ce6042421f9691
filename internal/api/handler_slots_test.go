package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupSlotRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(nil, nil, nil)
	r.GET("/api/laundry/slots", handler.GetSlots)
	r.POST("/api/laundry/book", handler.BookSlot)
	r.GET("/api/laundry/booked", handler.GetBookedSlots)
	r.PATCH("/api/laundry/machines/:machineId", handler.PatchMachineStatus)
	return r
}

func TestGetSlotsRequiresDate(t *testing.T) {
	router := setupSlotRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/laundry/slots", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"date is required"}`, w.Body.String())
}

func TestBookSlotRequiresBody(t *testing.T) {
	router := setupSlotRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/laundry/book", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestGetBookedSlotsRequiresUserID(t *testing.T) {
	router := setupSlotRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/laundry/booked", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"userId is required"}`, w.Body.String())
}

func TestPatchMachineStatusRequiresBody(t *testing.T) {
	router := setupSlotRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", "/api/laundry/machines/M001", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}
