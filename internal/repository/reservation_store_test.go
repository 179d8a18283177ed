package repository_test

import (
	"context"
	"errors"
	"testing"

	"event-ticketing/internal/model"
	"event-ticketing/internal/repository"
	apperrors "event-ticketing/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReservationStore(mock pgxmock.PgxPoolIface) repository.ReservationStore {
	return repository.NewPostgresReservationStore(
		mock,
		repository.NewEventRepository(mock),
		repository.NewBookingRepository(mock),
	)
}

const (
	lockEventSQL   = `FROM events\s+WHERE id = \$1\s+FOR UPDATE`
	hasConfirmed   = `SELECT EXISTS`
	decrementSQL   = `available_seats >= \$1`
	incrementSQL   = `available_seats \+ \$1 <= total_seats`
	insertBooking  = `INSERT INTO bookings`
	markCancelled  = `UPDATE bookings`
	findBookingSQL = `FROM bookings\s+WHERE id = \$1`
)

func TestPostgresReservationStore_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(1).WillReturnRows(eventRow(1, 5, 5))
		mock.ExpectQuery(hasConfirmed).WithArgs(10, 1, model.BookingStatusConfirmed).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(decrementSQL).WithArgs(2, pgxmock.AnyArg(), 1).
			WillReturnRows(pgxmock.NewRows([]string{"available_seats"}).AddRow(3))
		mock.ExpectQuery(insertBooking).WithArgs(10, 1, 2, model.BookingStatusConfirmed).
			WillReturnRows(bookingRow(1, 10, 1, 2, model.BookingStatusConfirmed))
		mock.ExpectCommit()

		booking, err := store.Reserve(ctx, 10, 1, 2)

		require.NoError(t, err)
		assert.Equal(t, 2, booking.SeatsBooked)
		assert.Equal(t, model.BookingStatusConfirmed, booking.BookingStatus)
	})

	t.Run("ZeroSeats_NoTransaction", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		_, err := store.Reserve(ctx, 10, 1, 0)

		assert.ErrorIs(t, err, apperrors.ErrInvalidQuantity)
	})

	t.Run("EventNotFound", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(404).WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err := store.Reserve(ctx, 10, 404, 1)

		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("DuplicateActiveBooking", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(1).WillReturnRows(eventRow(1, 5, 3))
		mock.ExpectQuery(hasConfirmed).WithArgs(10, 1, model.BookingStatusConfirmed).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := store.Reserve(ctx, 10, 1, 1)

		assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveBooking)
	})

	t.Run("InsufficientSeats_NoBookingRow", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(1).WillReturnRows(eventRow(1, 5, 3))
		mock.ExpectQuery(hasConfirmed).WithArgs(20, 1, model.BookingStatusConfirmed).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(decrementSQL).WithArgs(4, pgxmock.AnyArg(), 1).WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		_, err := store.Reserve(ctx, 20, 1, 4)

		assert.ErrorIs(t, err, apperrors.ErrInsufficientSeats)
	})

	t.Run("UniqueIndexBackstop", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(1).WillReturnRows(eventRow(1, 5, 5))
		mock.ExpectQuery(hasConfirmed).WithArgs(10, 1, model.BookingStatusConfirmed).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(decrementSQL).WithArgs(1, pgxmock.AnyArg(), 1).
			WillReturnRows(pgxmock.NewRows([]string{"available_seats"}).AddRow(4))
		mock.ExpectQuery(insertBooking).WithArgs(10, 1, 1, model.BookingStatusConfirmed).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		mock.ExpectRollback()

		_, err := store.Reserve(ctx, 10, 1, 1)

		assert.ErrorIs(t, err, apperrors.ErrDuplicateActiveBooking)
	})

	t.Run("SerializationFailure_Retryable", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(1).WillReturnError(&pgconn.PgError{Code: "40P01"})
		mock.ExpectRollback()

		_, err := store.Reserve(ctx, 10, 1, 1)

		assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
		assert.True(t, apperrors.IsRetryable(err))
		assert.EqualError(t, err, "events.FindByIDForUpdate: store unavailable")
	})

	t.Run("BeginFails", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

		_, err := store.Reserve(ctx, 10, 1, 1)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reservations.Reserve")
	})
}

func TestPostgresReservationStore_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("RestoresSeats", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectQuery(findBookingSQL).WithArgs(1).
			WillReturnRows(bookingRow(1, 10, 1, 2, model.BookingStatusConfirmed))
		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(1).WillReturnRows(eventRow(1, 5, 3))
		mock.ExpectQuery(markCancelled).WithArgs(model.BookingStatusCancelled, 1, model.BookingStatusConfirmed).
			WillReturnRows(bookingRow(1, 10, 1, 2, model.BookingStatusCancelled))
		mock.ExpectQuery(incrementSQL).WithArgs(2, pgxmock.AnyArg(), 1).
			WillReturnRows(pgxmock.NewRows([]string{"available_seats"}).AddRow(5))
		mock.ExpectCommit()

		booking, err := store.Cancel(ctx, 1)

		require.NoError(t, err)
		assert.True(t, booking.IsCancelled())
	})

	t.Run("AlreadyCancelled_NoTransaction", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectQuery(findBookingSQL).WithArgs(1).
			WillReturnRows(bookingRow(1, 10, 1, 2, model.BookingStatusCancelled))

		booking, err := store.Cancel(ctx, 1)

		assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)
		require.NotNil(t, booking)
		assert.True(t, booking.IsCancelled())
	})

	t.Run("LostRaceToConcurrentCancel", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectQuery(findBookingSQL).WithArgs(1).
			WillReturnRows(bookingRow(1, 10, 1, 2, model.BookingStatusConfirmed))
		mock.ExpectBegin()
		mock.ExpectQuery(lockEventSQL).WithArgs(1).WillReturnRows(eventRow(1, 5, 5))
		mock.ExpectQuery(markCancelled).WithArgs(model.BookingStatusCancelled, 1, model.BookingStatusConfirmed).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectRollback()

		booking, err := store.Cancel(ctx, 1)

		assert.ErrorIs(t, err, apperrors.ErrAlreadyCancelled)
		require.NotNil(t, booking)
		assert.True(t, booking.IsCancelled())
	})

	t.Run("BookingNotFound", func(t *testing.T) {
		mock := newMock(t)
		store := newReservationStore(mock)

		mock.ExpectQuery(findBookingSQL).WithArgs(404).WillReturnError(pgx.ErrNoRows)

		_, err := store.Cancel(ctx, 404)

		assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)
	})
}

func TestPostgresReservationStore_Availability(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	store := newReservationStore(mock)

	mock.ExpectQuery(`FROM events\s+WHERE id = \$1`).WithArgs(1).WillReturnRows(eventRow(1, 5, 0))

	availability, err := store.Availability(ctx, 1)

	require.NoError(t, err)
	assert.Equal(t, model.Availability{EventID: 1, TotalSeats: 5, AvailableSeats: 0, SoldOut: true}, availability)
}
