package model

import "time"

// BookingStatus 訂位狀態
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsValid 驗證狀態是否有效
func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusConfirmed, BookingStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo 檢查是否可以轉換到目標狀態；cancelled 為終態
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	transitions := map[BookingStatus][]BookingStatus{
		BookingStatusConfirmed: {BookingStatusCancelled},
		BookingStatusCancelled: {},
	}

	for _, status := range transitions[s] {
		if status == target {
			return true
		}
	}
	return false
}

// Booking a user's claim on seats of an event
type Booking struct {
	ID            int           `json:"id" db:"id"`
	UserID        int           `json:"user_id" db:"user_id"`
	EventID       int           `json:"event_id" db:"event_id"`
	SeatsBooked   int           `json:"seats_booked" db:"seats_booked"`
	BookingStatus BookingStatus `json:"booking_status" db:"booking_status"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`

	Event *Event `json:"event,omitempty" db:"-"`
}

func (b *Booking) IsCancelled() bool {
	return b.BookingStatus == BookingStatusCancelled
}

// ReserveRequest 訂位請求
type ReserveRequest struct {
	Seats int `json:"seats"`
}

// CancelResult reports the end state of a cancel call.
type CancelResult struct {
	Booking          *Booking `json:"booking"`
	AlreadyCancelled bool     `json:"already_cancelled"`
}

const (
	BookingEventConfirmed = "booking.confirmed"
	BookingEventCancelled = "booking.cancelled"
)

// BookingEvent is published after a reservation or cancellation commits.
type BookingEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Booking    Booking   `json:"booking"`
	OccurredAt time.Time `json:"occurred_at"`
}
