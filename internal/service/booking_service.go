package service

import (
	"context"

	"event-ticketing/internal/access"
	"event-ticketing/internal/model"
	"event-ticketing/internal/repository"
)

type BookingService interface {
	// ListBookings 列出某使用者的訂位（含活動資料），新到舊
	ListBookings(ctx context.Context, p model.Principal, userID int) ([]*model.Booking, error)
	ListAllBookings(ctx context.Context, p model.Principal) ([]*model.Booking, error)
	GetBooking(ctx context.Context, p model.Principal, id int) (*model.Booking, error)
}

type BookingServiceImpl struct {
	policy access.Policy
	ledger repository.BookingLedger
}

func NewBookingService(policy access.Policy, ledger repository.BookingLedger) BookingService {
	return &BookingServiceImpl{policy: policy, ledger: ledger}
}

func (s *BookingServiceImpl) ListBookings(ctx context.Context, p model.Principal, userID int) ([]*model.Booking, error) {
	if err := s.policy.Authorize(p, access.ResourceBooking, access.ActionList, userID); err != nil {
		return nil, err
	}
	return s.ledger.ListByUser(ctx, userID)
}

func (s *BookingServiceImpl) ListAllBookings(ctx context.Context, p model.Principal) ([]*model.Booking, error) {
	if err := s.policy.Authorize(p, access.ResourceBooking, access.ActionList, 0); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx)
}

func (s *BookingServiceImpl) GetBooking(ctx context.Context, p model.Principal, id int) (*model.Booking, error) {
	booking, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, access.ResourceBooking, access.ActionRead, booking.UserID); err != nil {
		return nil, err
	}
	return booking, nil
}
