package handler

import (
	"net/http"
	"time"

	"event-ticketing/internal/model"
	"event-ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service      service.EventService
	reservations service.ReservationService
}

func NewEventHandler(service service.EventService, reservations service.ReservationService) *EventHandler {
	return &EventHandler{service: service, reservations: reservations}
}

// RegisterRoutes mounts the event routes; writeMiddleware guards mutating routes only.
func (h *EventHandler) RegisterRoutes(r *gin.Engine, writeMiddleware ...gin.HandlerFunc) {
	router := r.Group("/api/v1")
	{
		router.GET("events", h.List)
		router.GET("events/:id", h.Get)
		router.GET("events/:id/availability", h.Availability)
		router.GET("events/:id/reconciliation", h.Reconciliation)
	}
	write := router.Group("", writeMiddleware...)
	{
		write.POST("events", h.Create)
		write.PUT("events/:id", h.Update)
		write.DELETE("events/:id", h.Delete)
	}
}

// CreateEventRequest 建立活動請求
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	EventDate   time.Time `json:"event_date" binding:"required"`
	Location    string    `json:"location"`
	TotalSeats  int       `json:"total_seats"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"image_url"`
}

// UpdateEventRequest 更新活動請求；座位數不可在此修改
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	EventDate   *time.Time `json:"event_date"`
	Location    *string    `json:"location"`
	Price       *float64   `json:"price"`
	ImageURL    *string    `json:"image_url"`
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.ListEvents(c, PrincipalFrom(c))
	if err != nil {
		handleError(c, err, "ListEvents")
		return
	}
	handleSuccess(c, events, http.StatusOK)
}

func (h *EventHandler) Get(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}
	event, err := h.service.GetEvent(c, PrincipalFrom(c), id)
	if err != nil {
		handleError(c, err, "GetEvent")
		return
	}
	handleSuccess(c, event, http.StatusOK)
}

func (h *EventHandler) Availability(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}
	availability, err := h.reservations.GetAvailability(c, PrincipalFrom(c), id)
	if err != nil {
		handleError(c, err, "GetAvailability")
		return
	}
	handleSuccess(c, availability, http.StatusOK)
}

func (h *EventHandler) Reconciliation(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}
	rec, err := h.reservations.Reconcile(c, PrincipalFrom(c), id)
	if err != nil {
		handleError(c, err, "Reconcile")
		return
	}
	handleSuccess(c, rec, http.StatusOK)
}

func (h *EventHandler) Create(c *gin.Context) {
	var req CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	cmd := model.CreateEventCommand{
		Title:       req.Title,
		Description: req.Description,
		EventDate:   req.EventDate,
		Location:    req.Location,
		TotalSeats:  req.TotalSeats,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	}
	created, err := h.service.SaveEvent(c, PrincipalFrom(c), cmd)
	if err != nil {
		handleError(c, err, "CreateEvent")
		return
	}
	handleSuccess(c, created, http.StatusCreated)
}

func (h *EventHandler) Update(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	cmd := model.UpdateEventCommand{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		EventDate:   req.EventDate,
		Location:    req.Location,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	}
	if cmd.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one field is required"})
		return
	}
	updated, err := h.service.SaveEvent(c, PrincipalFrom(c), cmd)
	if err != nil {
		handleError(c, err, "UpdateEvent")
		return
	}
	handleSuccess(c, updated, http.StatusOK)
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := BindID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteEvent(c, PrincipalFrom(c), id); err != nil {
		handleError(c, err, "DeleteEvent")
		return
	}
	handleSuccess(c, nil, http.StatusNoContent)
}
