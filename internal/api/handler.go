package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"hall-laundry-backend/internal/notification"
	"hall-laundry-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store    store.Store
	webpush  *webpush.Options
	notifier *notification.WorkerPool
}

// NewHandler creates a new API handler. webpushOptions and notifier may be
// nil when push is not configured.
func NewHandler(s store.Store, webpushOptions *webpush.Options, notifier *notification.WorkerPool) *Handler {
	return &Handler{
		store:    s,
		webpush:  webpushOptions,
		notifier: notifier,
	}
}

// renderStoreError maps the store's error taxonomy onto HTTP statuses:
// invalid input 400, not found 404, booking conflict 409, anything else is
// a storage failure and stays a 500 without leaking internals.
func renderStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrSlotNotFound), errors.Is(err, store.ErrMachineNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrSlotTaken):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
	}
}
