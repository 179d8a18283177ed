package model

import (
	"strings"
	"time"

	apperrors "event-ticketing/pkg/app_errors"
)

// Event 可預訂的活動，座位數只能透過預約引擎變動
type Event struct {
	ID             int       `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	EventDate      time.Time `json:"event_date" db:"event_date"`
	Location       string    `json:"location" db:"location"`
	TotalSeats     int       `json:"total_seats" db:"total_seats"`
	AvailableSeats int       `json:"available_seats" db:"available_seats"`
	Price          float64   `json:"price" db:"price"`
	ImageURL       string    `json:"image_url" db:"image_url"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// CheckSeats verifies 0 <= available_seats <= total_seats and total_seats > 0.
func (e *Event) CheckSeats() error {
	if e.TotalSeats <= 0 || e.AvailableSeats < 0 || e.AvailableSeats > e.TotalSeats {
		return apperrors.ErrConstraintViolation
	}
	return nil
}

// IsSoldOut 檢查是否已無座位
func (e *Event) IsSoldOut() bool {
	return e.AvailableSeats == 0
}

// Availability is a snapshot of an event's seat counter.
type Availability struct {
	EventID        int  `json:"event_id"`
	TotalSeats     int  `json:"total_seats"`
	AvailableSeats int  `json:"available_seats"`
	SoldOut        bool `json:"sold_out"`
}

// SeatReconciliation compares an event's seat counter with the ledger.
// Consistent means available_seats = total_seats - confirmed seats.
type SeatReconciliation struct {
	EventID        int  `json:"event_id"`
	TotalSeats     int  `json:"total_seats"`
	AvailableSeats int  `json:"available_seats"`
	ConfirmedSeats int  `json:"confirmed_seats"`
	Consistent     bool `json:"consistent"`
}

func (e *Event) Reconcile(confirmedSeats int) SeatReconciliation {
	return SeatReconciliation{
		EventID:        e.ID,
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
		ConfirmedSeats: confirmedSeats,
		Consistent:     e.AvailableSeats == e.TotalSeats-confirmedSeats,
	}
}

func (e *Event) Availability() Availability {
	return Availability{
		EventID:        e.ID,
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
		SoldOut:        e.IsSoldOut(),
	}
}

// EventCommand is either a CreateEventCommand or an UpdateEventCommand.
type EventCommand interface {
	isEventCommand()
}

type CreateEventCommand struct {
	Title       string
	Description string
	EventDate   time.Time
	Location    string
	TotalSeats  int
	Price       float64
	ImageURL    string
}

// UpdateEventCommand edits non-seat fields only; nil fields are left untouched.
type UpdateEventCommand struct {
	ID          int
	Title       *string
	Description *string
	EventDate   *time.Time
	Location    *string
	Price       *float64
	ImageURL    *string
}

func (CreateEventCommand) isEventCommand() {}
func (UpdateEventCommand) isEventCommand() {}

func (c CreateEventCommand) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return apperrors.ErrInvalidInput
	}
	if c.TotalSeats <= 0 || c.Price < 0 {
		return apperrors.ErrConstraintViolation
	}
	return nil
}

// Event builds a new event with every seat available.
func (c CreateEventCommand) Event() *Event {
	return &Event{
		Title:          c.Title,
		Description:    c.Description,
		EventDate:      c.EventDate.UTC(),
		Location:       c.Location,
		TotalSeats:     c.TotalSeats,
		AvailableSeats: c.TotalSeats,
		Price:          c.Price,
		ImageURL:       c.ImageURL,
	}
}

func (c UpdateEventCommand) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.EventDate == nil &&
		c.Location == nil && c.Price == nil && c.ImageURL == nil
}

func (c UpdateEventCommand) Validate() error {
	if c.IsEmpty() {
		return apperrors.ErrInvalidInput
	}
	if c.Title != nil && strings.TrimSpace(*c.Title) == "" {
		return apperrors.ErrInvalidInput
	}
	if c.Price != nil && *c.Price < 0 {
		return apperrors.ErrConstraintViolation
	}
	return nil
}
