package service_test

import (
	"context"
	"testing"

	apperrors "event-ticketing/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingService_ListBookings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	concert := f.createEvent(t, "Concert", 10)
	opera := f.createEvent(t, "Opera", 10)

	_, err := f.reservations.Reserve(ctx, alice, concert.ID, 1)
	require.NoError(t, err)
	latest, err := f.reservations.Reserve(ctx, alice, opera.ID, 2)
	require.NoError(t, err)
	_, err = f.reservations.Reserve(ctx, bob, concert.ID, 1)
	require.NoError(t, err)

	t.Run("OwnBookingsWithEvent", func(t *testing.T) {
		bookings, err := f.bookings.ListBookings(ctx, alice, alice.UserID)

		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, latest.ID, bookings[0].ID)
		require.NotNil(t, bookings[0].Event)
		assert.Equal(t, "Opera", bookings[0].Event.Title)
	})

	t.Run("OtherUsersForbidden", func(t *testing.T) {
		_, err := f.bookings.ListBookings(ctx, alice, bob.UserID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("AdminReadsAnyUser", func(t *testing.T) {
		bookings, err := f.bookings.ListBookings(ctx, admin, bob.UserID)

		require.NoError(t, err)
		assert.Len(t, bookings, 1)
	})

	t.Run("ListAll_AdminOnly", func(t *testing.T) {
		all, err := f.bookings.ListAllBookings(ctx, admin)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		_, err = f.bookings.ListAllBookings(ctx, alice)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)

		_, err = f.bookings.ListAllBookings(ctx, nobody)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestBookingService_GetBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	event := f.createEvent(t, "Concert", 10)
	booking, err := f.reservations.Reserve(ctx, alice, event.ID, 1)
	require.NoError(t, err)

	got, err := f.bookings.GetBooking(ctx, alice, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = f.bookings.GetBooking(ctx, bob, booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.bookings.GetBooking(ctx, admin, booking.ID)
	assert.NoError(t, err)

	_, err = f.bookings.GetBooking(ctx, alice, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
