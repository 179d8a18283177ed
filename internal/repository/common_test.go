package repository_test

import (
	"testing"
	"time"

	"event-ticketing/internal/model"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

var (
	eventCols = []string{
		"id", "title", "description", "event_date", "location", "total_seats",
		"available_seats", "price", "image_url", "created_at", "updated_at",
	}
	bookingCols = []string{"id", "user_id", "event_id", "seats_booked", "booking_status", "created_at"}

	testTime = time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)
)

// newMock 建立 pgxmock pool，測試結束時檢查所有預期都被呼叫
func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func eventRow(id, total, available int) *pgxmock.Rows {
	return pgxmock.NewRows(eventCols).AddRow(
		id, "Concert", "Live show", testTime, "Taipei Arena", total,
		available, 1200.0, "", testTime, testTime,
	)
}

func bookingRow(id, userID, eventID, seats int, status model.BookingStatus) *pgxmock.Rows {
	return pgxmock.NewRows(bookingCols).AddRow(id, userID, eventID, seats, status, testTime)
}
