package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"event-ticketing/internal/auth"
	"event-ticketing/internal/handler"
	"event-ticketing/internal/model"
	"event-ticketing/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	InvalidJSON = `{"invalid": json}`

	admin = model.Principal{UserID: 1, Email: "admin@example.com", FullName: "Admin", IsAdmin: true}
	alice = model.Principal{UserID: 10, Email: "alice@example.com", FullName: "Alice"}
	bob   = model.Principal{UserID: 20, Email: "bob@example.com", FullName: "Bob"}
)

func init() {
	gin.SetMode(gin.TestMode)
}

var verifier = auth.NewTokenVerifier("handler-test-secret", "event-ticketing")

func bearer(t *testing.T, p model.Principal) string {
	t.Helper()
	token, err := verifier.Issue(p, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if raw, ok := data.(string); ok {
		return bytes.NewBufferString(raw)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body, optionally authenticated
func createJSONHTTPRequest(t *testing.T, method, url string, data interface{}, p *model.Principal) *http.Request {
	t.Helper()
	var body *bytes.Buffer
	if data != nil {
		body = createJSONRequest(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if p != nil {
		req.Header.Set("Authorization", bearer(t, *p))
	}
	return req
}

type mocks struct {
	events       *MockEventService
	bookings     *MockBookingService
	reservations *MockReservationService
	profiles     *MockProfileService
}

func newMocks() *mocks {
	return &mocks{
		events:       new(MockEventService),
		bookings:     new(MockBookingService),
		reservations: new(MockReservationService),
		profiles:     new(MockProfileService),
	}
}

func (m *mocks) assertExpectations(t *testing.T) {
	m.events.AssertExpectations(t)
	m.bookings.AssertExpectations(t)
	m.reservations.AssertExpectations(t)
	m.profiles.AssertExpectations(t)
}

func setupTestRouter(m *mocks, limiter ratelimit.Limiter) *gin.Engine {
	return handler.NewRouter(handler.RouterConfig{
		Verifier:     verifier,
		Limiter:      limiter,
		Events:       m.events,
		Bookings:     m.bookings,
		Reservations: m.reservations,
		Profiles:     m.profiles,
	})
}

type MockEventService struct {
	mock.Mock
}

func (m *MockEventService) ListEvents(ctx context.Context, p model.Principal) ([]*model.Event, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Event), args.Error(1)
}

func (m *MockEventService) GetEvent(ctx context.Context, p model.Principal, id int) (*model.Event, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventService) SaveEvent(ctx context.Context, p model.Principal, cmd model.EventCommand) (*model.Event, error) {
	args := m.Called(ctx, p, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockEventService) DeleteEvent(ctx context.Context, p model.Principal, id int) error {
	args := m.Called(ctx, p, id)
	return args.Error(0)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) ListBookings(ctx context.Context, p model.Principal, userID int) ([]*model.Booking, error) {
	args := m.Called(ctx, p, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *MockBookingService) ListAllBookings(ctx context.Context, p model.Principal) ([]*model.Booking, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *MockBookingService) GetBooking(ctx context.Context, p model.Principal, id int) (*model.Booking, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) Reserve(ctx context.Context, p model.Principal, eventID int, seats int) (*model.Booking, error) {
	args := m.Called(ctx, p, eventID, seats)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockReservationService) Cancel(ctx context.Context, p model.Principal, bookingID int) (*model.CancelResult, error) {
	args := m.Called(ctx, p, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancelResult), args.Error(1)
}

func (m *MockReservationService) GetAvailability(ctx context.Context, p model.Principal, eventID int) (model.Availability, error) {
	args := m.Called(ctx, p, eventID)
	return args.Get(0).(model.Availability), args.Error(1)
}

func (m *MockReservationService) Reconcile(ctx context.Context, p model.Principal, eventID int) (model.SeatReconciliation, error) {
	args := m.Called(ctx, p, eventID)
	return args.Get(0).(model.SeatReconciliation), args.Error(1)
}

type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetProfile(ctx context.Context, p model.Principal, userID int) (*model.UserProfile, error) {
	args := m.Called(ctx, p, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func (m *MockProfileService) EnsureProfile(ctx context.Context, p model.Principal) (*model.UserProfile, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(ratelimit.Decision), args.Error(1)
}
