package service

import (
	"context"
	"errors"
	"math"
	"time"

	"event-ticketing/internal/access"
	"event-ticketing/internal/metrics"
	"event-ticketing/internal/model"
	"event-ticketing/internal/queue"
	"event-ticketing/internal/repository"
	apperrors "event-ticketing/pkg/app_errors"
	"event-ticketing/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// ReservationService is the reservation engine. The caller's identity is
// always an explicit argument.
type ReservationService interface {
	Reserve(ctx context.Context, p model.Principal, eventID int, seats int) (*model.Booking, error)
	// Cancel 重複取消時回傳 AlreadyCancelled=true 的結果並附帶 ErrAlreadyCancelled
	Cancel(ctx context.Context, p model.Principal, bookingID int) (*model.CancelResult, error)
	GetAvailability(ctx context.Context, p model.Principal, eventID int) (model.Availability, error)
	// Reconcile 僅限 admin；兩次讀取之間的訂位可能讓 Consistent 短暫為 false
	Reconcile(ctx context.Context, p model.Principal, eventID int) (model.SeatReconciliation, error)
}

type ReservationServiceImpl struct {
	policy  access.Policy
	store   repository.ReservationStore
	ledger  repository.BookingLedger
	queue   queue.BookingEventQueue
	metrics metrics.Recorder
	log     *zap.Logger
	now     func() time.Time
}

func NewReservationService(
	policy access.Policy,
	store repository.ReservationStore,
	ledger repository.BookingLedger,
	queue queue.BookingEventQueue,
	recorder metrics.Recorder,
) ReservationService {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ReservationServiceImpl{
		policy:  policy,
		store:   store,
		ledger:  ledger,
		queue:   queue,
		metrics: recorder,
		log:     logger.WithComponent("service"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *ReservationServiceImpl) Reserve(ctx context.Context, p model.Principal, eventID int, seats int) (*model.Booking, error) {
	booking, err := s.reserve(ctx, p, eventID, seats)
	s.metrics.ObserveReservation(resultLabel(err))
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.BookingEventConfirmed, booking)
	return booking, nil
}

func (s *ReservationServiceImpl) reserve(ctx context.Context, p model.Principal, eventID int, seats int) (*model.Booking, error) {
	// 1. 權限檢查在任何資料變動之前
	if err := s.policy.Authorize(p, access.ResourceBooking, access.ActionReserve, p.UserID); err != nil {
		return nil, err
	}
	if seats <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}
	// seat counts are int4 in postgres; nothing larger can ever fit
	if seats > math.MaxInt32 {
		return nil, apperrors.ErrInsufficientSeats
	}

	// 2. 扣座位與建立訂位在同一個原子操作內完成
	return s.store.Reserve(ctx, p.UserID, eventID, seats)
}

func (s *ReservationServiceImpl) Cancel(ctx context.Context, p model.Principal, bookingID int) (*model.CancelResult, error) {
	result, err := s.cancel(ctx, p, bookingID)
	s.metrics.ObserveCancellation(resultLabel(err))
	if err != nil {
		return result, err
	}

	s.publish(ctx, model.BookingEventCancelled, result.Booking)
	return result, nil
}

func (s *ReservationServiceImpl) cancel(ctx context.Context, p model.Principal, bookingID int) (*model.CancelResult, error) {
	booking, err := s.ledger.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ResourceBooking, access.ActionCancel, booking.UserID); err != nil {
		return nil, err
	}

	cancelled, err := s.store.Cancel(ctx, bookingID)
	if errors.Is(err, apperrors.ErrAlreadyCancelled) {
		return &model.CancelResult{Booking: cancelled, AlreadyCancelled: true}, err
	}
	if err != nil {
		return nil, err
	}

	return &model.CancelResult{Booking: cancelled}, nil
}

func (s *ReservationServiceImpl) GetAvailability(ctx context.Context, p model.Principal, eventID int) (model.Availability, error) {
	if err := s.policy.Authorize(p, access.ResourceEvent, access.ActionRead, 0); err != nil {
		return model.Availability{}, err
	}
	return s.store.Availability(ctx, eventID)
}

func (s *ReservationServiceImpl) Reconcile(ctx context.Context, p model.Principal, eventID int) (model.SeatReconciliation, error) {
	if err := s.policy.Authorize(p, access.ResourceEvent, access.ActionReconcile, 0); err != nil {
		return model.SeatReconciliation{}, err
	}
	a, err := s.store.Availability(ctx, eventID)
	if err != nil {
		return model.SeatReconciliation{}, err
	}
	confirmed, err := s.ledger.ConfirmedSeats(ctx, eventID)
	if err != nil {
		return model.SeatReconciliation{}, err
	}

	event := model.Event{ID: a.EventID, TotalSeats: a.TotalSeats, AvailableSeats: a.AvailableSeats}
	rec := event.Reconcile(confirmed)
	if !rec.Consistent {
		s.log.Warn("seat counter out of step with ledger",
			zap.Int("event_id", eventID),
			zap.Int("available_seats", rec.AvailableSeats),
			zap.Int("confirmed_seats", confirmed))
	}
	return rec, nil
}

// publish 在 commit 之後執行；失敗只記錄，不回滾已完成的訂位
func (s *ReservationServiceImpl) publish(ctx context.Context, eventType string, booking *model.Booking) {
	if s.queue == nil || booking == nil {
		return
	}

	event := &model.BookingEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Booking:    *booking,
		OccurredAt: s.now(),
	}

	// the request may already be gone; the event still goes out
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.queue.Publish(pubCtx, event); err != nil {
		s.metrics.ObservePublish("error")
		s.log.Error("publish booking event failed",
			zap.String("type", eventType),
			zap.Int("booking_id", booking.ID),
			zap.Error(err))
		return
	}
	s.metrics.ObservePublish("success")
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, apperrors.ErrInsufficientSeats):
		return "insufficient_seats"
	case errors.Is(err, apperrors.ErrDuplicateActiveBooking):
		return "duplicate"
	case errors.Is(err, apperrors.ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrForbidden), errors.Is(err, apperrors.ErrUnauthorized):
		return "denied"
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return "unavailable"
	}
	return "error"
}
