package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hall-laundry-backend/config"
	"hall-laundry-backend/internal/mw"
	"hall-laundry-backend/internal/notification"
	"hall-laundry-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, webpushOptions *webpush.Options, notifier *notification.WorkerPool, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions, notifier)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	api := r.Group("/api/laundry")
	api.Use(rateLimiter)
	{
		api.GET("/slots", handler.GetSlots)
		api.POST("/book", handler.BookSlot)
		api.GET("/booked", handler.GetBookedSlots)

		// Machine listing is the one endpoint cheap to cache: slot reads
		// must stay fresh for booking, but usage counts tolerate the
		// configured TTL.
		if cfg.CacheTTLSeconds > 0 {
			ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
			cacheStore := cache.New(ttl, 2*ttl)
			api.GET("/machines", mw.Cache(cacheStore, ttl), handler.GetMachines)
		} else {
			api.GET("/machines", handler.GetMachines)
		}
		api.PATCH("/machines/:machineId", handler.PatchMachineStatus)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
