package handler

import (
	"errors"
	"net/http"

	"event-ticketing/internal/model"
	"event-ticketing/internal/service"
	apperrors "event-ticketing/pkg/app_errors"
	"event-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BookingHandler struct {
	bookings     service.BookingService
	reservations service.ReservationService
}

func NewBookingHandler(bookings service.BookingService, reservations service.ReservationService) *BookingHandler {
	return &BookingHandler{bookings: bookings, reservations: reservations}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine, writeMiddleware ...gin.HandlerFunc) {
	router := r.Group("/api/v1")
	{
		router.GET("bookings", h.List)
		router.GET("bookings/:id", h.Get)
	}
	write := router.Group("", writeMiddleware...)
	{
		write.POST("events/:id/bookings", h.Reserve)
		write.PUT("bookings/:id/cancel", h.Cancel)
	}
}

// ListBookingsQuery admin 可指定 user_id；未指定則列出全部
type ListBookingsQuery struct {
	UserID int `form:"user_id"`
}

func (h *BookingHandler) Reserve(c *gin.Context) {
	eventID, ok := BindID(c, "id")
	if !ok {
		return
	}
	var req model.ReserveRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	booking, err := h.reservations.Reserve(c, PrincipalFrom(c), eventID, req.Seats)
	if err != nil {
		handleError(c, err, "Reserve")
		return
	}
	handleSuccess(c, booking, http.StatusCreated)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}

	result, err := h.reservations.Cancel(c, PrincipalFrom(c), id)
	if errors.Is(err, apperrors.ErrAlreadyCancelled) {
		logger.WithComponent("handler").Info("Booking already cancelled",
			zap.Int("booking_id", id),
			zap.String("request_id", RequestIDFrom(c)))
		handleSuccess(c, result, http.StatusOK)
		return
	}
	if err != nil {
		handleError(c, err, "Cancel")
		return
	}
	handleSuccess(c, result, http.StatusOK)
}

func (h *BookingHandler) List(c *gin.Context) {
	var query ListBookingsQuery
	if err := BindQuery(c, &query); err != nil {
		return
	}

	p := PrincipalFrom(c)
	var (
		bookings []*model.Booking
		err      error
	)
	switch {
	case query.UserID > 0:
		bookings, err = h.bookings.ListBookings(c, p, query.UserID)
	case p.IsAdmin:
		bookings, err = h.bookings.ListAllBookings(c, p)
	default:
		bookings, err = h.bookings.ListBookings(c, p, p.UserID)
	}
	if err != nil {
		handleError(c, err, "ListBookings")
		return
	}
	handleSuccess(c, bookings, http.StatusOK)
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.GetBooking(c, PrincipalFrom(c), id)
	if err != nil {
		handleError(c, err, "GetBooking")
		return
	}
	handleSuccess(c, booking, http.StatusOK)
}
