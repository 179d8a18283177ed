package repository

import (
	"context"
	"errors"

	"event-ticketing/internal/model"
	apperrors "event-ticketing/pkg/app_errors"
)

// ReservationStore applies seat-changing operations as indivisible units:
// a booking row never exists without its seat decrement, and a cancellation
// never restores seats twice.
type ReservationStore interface {
	Reserve(ctx context.Context, userID int, eventID int, seats int) (*model.Booking, error)
	// Cancel returns the booking together with ErrAlreadyCancelled when it
	// was cancelled before; seats are restored only on the first call.
	Cancel(ctx context.Context, bookingID int) (*model.Booking, error)
	Availability(ctx context.Context, eventID int) (model.Availability, error)
}

type PostgresReservationStore struct {
	db       DB
	events   EventRepository
	bookings BookingRepository
}

func NewPostgresReservationStore(db DB, events EventRepository, bookings BookingRepository) ReservationStore {
	return &PostgresReservationStore{
		db:       db,
		events:   events,
		bookings: bookings,
	}
}

func (s *PostgresReservationStore) Reserve(ctx context.Context, userID int, eventID int, seats int) (*model.Booking, error) {
	if seats <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, classify("reservations.Reserve", err)
	}
	defer tx.Rollback(ctx)

	// 1. lock the event row; concurrent reservations on it queue up here
	if _, err := s.events.FindByIDForUpdate(ctx, tx, eventID); err != nil {
		return nil, err
	}

	// 2. one confirmed booking per (user, event), checked before touching seats
	exists, err := s.bookings.HasConfirmed(ctx, tx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.ErrDuplicateActiveBooking
	}

	// 3. conditional decrement: fails instead of going negative
	if _, err := s.events.DecrementAvailableSeats(ctx, tx, eventID, seats); err != nil {
		return nil, err
	}

	// 4. booking row, same transaction
	booking, err := s.bookings.Create(ctx, tx, &model.Booking{
		UserID:        userID,
		EventID:       eventID,
		SeatsBooked:   seats,
		BookingStatus: model.BookingStatusConfirmed,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("reservations.Reserve", err)
	}

	return booking, nil
}

func (s *PostgresReservationStore) Cancel(ctx context.Context, bookingID int) (*model.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsCancelled() {
		return booking, apperrors.ErrAlreadyCancelled
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, classify("reservations.Cancel", err)
	}
	defer tx.Rollback(ctx)

	// lock order matches Reserve: event row first
	if _, err := s.events.FindByIDForUpdate(ctx, tx, booking.EventID); err != nil {
		return nil, err
	}

	cancelled, err := s.bookings.MarkCancelled(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, apperrors.ErrAlreadyCancelled) {
			// lost the race to a concurrent cancel
			booking.BookingStatus = model.BookingStatusCancelled
			return booking, err
		}
		return nil, err
	}

	if _, err := s.events.IncrementAvailableSeats(ctx, tx, cancelled.EventID, cancelled.SeatsBooked); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify("reservations.Cancel", err)
	}

	return cancelled, nil
}

// Availability always reads the committed row; nothing is cached.
func (s *PostgresReservationStore) Availability(ctx context.Context, eventID int) (model.Availability, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return model.Availability{}, err
	}
	return event.Availability(), nil
}
