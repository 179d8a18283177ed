package repository

import (
	"context"
	"errors"

	"event-ticketing/internal/model"
	apperrors "event-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

// BookingLedger is the read side of the booking repository.
type BookingLedger interface {
	FindByID(ctx context.Context, id int) (*model.Booking, error)
	ListByUser(ctx context.Context, userID int) ([]*model.Booking, error)
	List(ctx context.Context) ([]*model.Booking, error)
	ConfirmedSeats(ctx context.Context, eventID int) (int, error)
}

type BookingRepository interface {
	BookingLedger

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error)
	HasConfirmed(ctx context.Context, tx pgx.Tx, userID int, eventID int) (bool, error)
	MarkCancelled(ctx context.Context, tx pgx.Tx, id int) (*model.Booking, error)
}

type BookingRepositoryImpl struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &BookingRepositoryImpl{
		db: db,
	}
}

const bookingColumns = `id, user_id, event_id, seats_booked, booking_status, created_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.UserID,
		&booking.EventID,
		&booking.SeatsBooked,
		&booking.BookingStatus,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error) {
	query := `
		INSERT INTO bookings (user_id, event_id, seats_booked, booking_status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + bookingColumns

	created, err := scanBooking(tx.QueryRow(ctx, query,
		booking.UserID, booking.EventID, booking.SeatsBooked, booking.BookingStatus,
	))
	if err != nil {
		// the partial unique index on confirmed rows backs up HasConfirmed
		return nil, classify("bookings.Create", err)
	}

	return created, nil
}

func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id int) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1
	`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, classify("bookings.FindByID", err)
	}

	return booking, nil
}

const bookingWithEventQuery = `
		SELECT b.id, b.user_id, b.event_id, b.seats_booked, b.booking_status, b.created_at,
		       e.id, e.title, e.description, e.event_date, e.location, e.total_seats,
		       e.available_seats, e.price, e.image_url, e.created_at, e.updated_at
		FROM bookings b
		JOIN events e ON e.id = b.event_id
`

func (r *BookingRepositoryImpl) listWithEvent(ctx context.Context, op string, where string, args ...interface{}) ([]*model.Booking, error) {
	query := bookingWithEventQuery + where + `
		ORDER BY b.created_at DESC, b.id DESC
	`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)
	for rows.Next() {
		var booking model.Booking
		var event model.Event
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.EventID,
			&booking.SeatsBooked,
			&booking.BookingStatus,
			&booking.CreatedAt,
			&event.ID,
			&event.Title,
			&event.Description,
			&event.EventDate,
			&event.Location,
			&event.TotalSeats,
			&event.AvailableSeats,
			&event.Price,
			&event.ImageURL,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, classify(op, err)
		}
		booking.Event = &event
		bookings = append(bookings, &booking)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}

	return bookings, nil
}

// ListByUser returns the user's bookings, newest first, joined with their event.
func (r *BookingRepositoryImpl) ListByUser(ctx context.Context, userID int) ([]*model.Booking, error) {
	return r.listWithEvent(ctx, "bookings.ListByUser", "WHERE b.user_id = $1", userID)
}

func (r *BookingRepositoryImpl) List(ctx context.Context) ([]*model.Booking, error) {
	return r.listWithEvent(ctx, "bookings.List", "")
}

func (r *BookingRepositoryImpl) HasConfirmed(ctx context.Context, tx pgx.Tx, userID int, eventID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE user_id = $1 AND event_id = $2 AND booking_status = $3
		)
	`

	var exists bool
	if err := tx.QueryRow(ctx, query, userID, eventID, model.BookingStatusConfirmed).Scan(&exists); err != nil {
		return false, classify("bookings.HasConfirmed", err)
	}

	return exists, nil
}

// MarkCancelled flips confirmed -> cancelled. The status predicate makes the
// transition fire at most once per booking.
func (r *BookingRepositoryImpl) MarkCancelled(ctx context.Context, tx pgx.Tx, id int) (*model.Booking, error) {
	query := `
		UPDATE bookings
		SET booking_status = $1
		WHERE id = $2 AND booking_status = $3
		RETURNING ` + bookingColumns

	booking, err := scanBooking(tx.QueryRow(ctx, query, model.BookingStatusCancelled, id, model.BookingStatusConfirmed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAlreadyCancelled
		}
		return nil, classify("bookings.MarkCancelled", err)
	}

	return booking, nil
}

// ConfirmedSeats sums seats held by confirmed bookings on the event.
func (r *BookingRepositoryImpl) ConfirmedSeats(ctx context.Context, eventID int) (int, error) {
	query := `
		SELECT COALESCE(SUM(seats_booked), 0)
		FROM bookings
		WHERE event_id = $1 AND booking_status = $2
	`

	var total int
	if err := r.db.QueryRow(ctx, query, eventID, model.BookingStatusConfirmed).Scan(&total); err != nil {
		return 0, classify("bookings.ConfirmedSeats", err)
	}

	return total, nil
}
