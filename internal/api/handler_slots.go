package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSlots handles GET /api/laundry/slots?date=YYYY-MM-DD. The first read
// of an ungenerated date synthesizes the full day's grid.
func (h *Handler) GetSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "date is required"})
		return
	}

	slots, err := h.store.ListSlots(c.Request.Context(), date)
	if err != nil {
		renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

type bookSlotRequest struct {
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	MachineID string `json:"machineId" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
}

// BookSlot handles POST /api/laundry/book. A 409 means another user holds
// the slot; a 404 means the (date, time, machine) triple resolves to no
// slot at all.
func (h *Handler) BookSlot(c *gin.Context) {
	var req bookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	slot, err := h.store.BookSlot(c.Request.Context(), req.Date, req.Time, req.MachineID, req.UserID)
	if err != nil {
		renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// GetBookedSlots handles GET /api/laundry/booked?userId=.
func (h *Handler) GetBookedSlots(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	slots, err := h.store.UserSlots(c.Request.Context(), userID)
	if err != nil {
		renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}
