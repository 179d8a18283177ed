package handler

import (
	"net/http"

	"event-ticketing/internal/metrics"
	"event-ticketing/internal/ratelimit"
	"event-ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Verifier TokenVerifier
	// Limiter guards write routes; nil disables rate limiting.
	Limiter ratelimit.Limiter
	// Metrics nil disables /metrics and latency recording.
	Metrics *metrics.Metrics

	Events       service.EventService
	Bookings     service.BookingService
	Reservations service.ReservationService
	Profiles     service.ProfileService
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	r.Use(AccessLog(), Authenticate(cfg.Verifier))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	var writeMiddleware []gin.HandlerFunc
	if cfg.Limiter != nil {
		writeMiddleware = append(writeMiddleware, RateLimit(cfg.Limiter))
	}

	NewEventHandler(cfg.Events, cfg.Reservations).RegisterRoutes(r, writeMiddleware...)
	NewBookingHandler(cfg.Bookings, cfg.Reservations).RegisterRoutes(r, writeMiddleware...)
	NewProfileHandler(cfg.Profiles).RegisterRoutes(r)

	return r
}
