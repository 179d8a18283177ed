package service_test

import (
	"context"
	"testing"
	"time"

	"event-ticketing/internal/access"
	"event-ticketing/internal/model"
	"event-ticketing/internal/queue"
	"event-ticketing/internal/repository/memory"
	"event-ticketing/internal/service"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	admin  = model.Principal{UserID: 1, Email: "admin@example.com", FullName: "Admin", IsAdmin: true}
	alice  = model.Principal{UserID: 10, Email: "alice@example.com", FullName: "Alice"}
	bob    = model.Principal{UserID: 20, Email: "bob@example.com", FullName: "Bob"}
	nobody = model.Principal{}
)

type fixture struct {
	store        *memory.Store
	queue        queue.BookingEventQueue
	events       service.EventService
	reservations service.ReservationService
	bookings     service.BookingService
	profiles     service.ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithQueue(t, queue.NewMemoryBookingEventQueue(1000))
}

func newFixtureWithQueue(t *testing.T, q queue.BookingEventQueue) *fixture {
	t.Helper()
	store := memory.New()
	policy := access.NewPolicy()

	return &fixture{
		store:        store,
		queue:        q,
		events:       service.NewEventService(policy, store.Events()),
		reservations: service.NewReservationService(policy, store.Reservations(), store.Bookings(), q, nil),
		bookings:     service.NewBookingService(policy, store.Bookings()),
		profiles:     service.NewProfileService(policy, store.Users()),
	}
}

// createEvent 以 admin 身分建立活動
func (f *fixture) createEvent(t *testing.T, title string, seats int) *model.Event {
	t.Helper()
	event, err := f.events.SaveEvent(context.Background(), admin, model.CreateEventCommand{
		Title:      title,
		EventDate:  time.Now().Add(72 * time.Hour),
		Location:   "Taipei Arena",
		TotalSeats: seats,
		Price:      1200,
	})
	require.NoError(t, err)
	return event
}

func (f *fixture) available(t *testing.T, eventID int) int {
	t.Helper()
	a, err := f.reservations.GetAvailability(context.Background(), nobody, eventID)
	require.NoError(t, err)
	return a.AvailableSeats
}

// assertSeatInvariant: available = total - Σ confirmed seats, 0 <= available <= total
func (f *fixture) assertSeatInvariant(t *testing.T, eventID int) {
	t.Helper()
	ctx := context.Background()

	event, err := f.store.Events().FindByID(ctx, eventID)
	require.NoError(t, err)
	confirmed, err := f.store.Bookings().ConfirmedSeats(ctx, eventID)
	require.NoError(t, err)

	require.GreaterOrEqual(t, event.AvailableSeats, 0)
	require.LessOrEqual(t, event.AvailableSeats, event.TotalSeats)
	require.Equal(t, event.TotalSeats-confirmed, event.AvailableSeats)
}

type MockBookingEventQueue struct {
	mock.Mock
}

func (m *MockBookingEventQueue) Publish(ctx context.Context, event *model.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBookingEventQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan queue.Delivery), args.Error(1)
}
