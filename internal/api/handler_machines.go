package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetMachines handles GET /api/laundry/machines. The first read seeds the
// fixed catalog; usage counts are aggregated live from booked slots.
func (h *Handler) GetMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

type patchMachineRequest struct {
	Status string `json:"status" binding:"required"`
}

// PatchMachineStatus handles PATCH /api/laundry/machines/:machineId.
// Subscribers of the machine are notified of the status change when push
// is configured.
func (h *Handler) PatchMachineStatus(c *gin.Context) {
	machineID := c.Param("machineId")

	var req patchMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.SetMachineStatus(c.Request.Context(), machineID, req.Status); err != nil {
		renderStoreError(c, err)
		return
	}

	if h.notifier != nil {
		h.notifier.Dispatch(machineID)
	}

	c.JSON(http.StatusOK, gin.H{"machineId": machineID, "status": req.Status})
}
