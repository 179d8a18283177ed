package service

import (
	"context"
	"errors"
	"fmt"

	"event-ticketing/internal/model"
	apperrors "event-ticketing/pkg/app_errors"
	"event-ticketing/pkg/logger"

	"go.uber.org/zap"
)

// BookingNotifier turns booking lifecycle events into user notifications.
// Delivery is a structured log line; the worker retries on error.
type BookingNotifier struct {
	events EventLookup
	log    *zap.Logger
}

// EventLookup resolves the event a booking belongs to.
type EventLookup interface {
	FindByID(ctx context.Context, id int) (*model.Event, error)
}

func NewBookingNotifier(events EventLookup) *BookingNotifier {
	return &BookingNotifier{
		events: events,
		log:    logger.WithComponent("notifier"),
	}
}

func (n *BookingNotifier) Handle(ctx context.Context, event *model.BookingEvent) error {
	if event == nil {
		return nil
	}

	var verb string
	switch event.Type {
	case model.BookingEventConfirmed:
		verb = "confirmed"
	case model.BookingEventCancelled:
		verb = "cancelled"
	default:
		// 未知類型直接略過，不重試
		n.log.Warn("unknown booking event type", zap.String("event_id", event.ID), zap.String("type", event.Type))
		return nil
	}

	title := fmt.Sprintf("event #%d", event.Booking.EventID)
	if n.events != nil {
		e, err := n.events.FindByID(ctx, event.Booking.EventID)
		switch {
		case err == nil:
			title = e.Title
		case errors.Is(err, apperrors.ErrNotFound):
			// 活動已刪除，仍然通知
		default:
			return err
		}
	}

	n.log.Info("booking "+verb,
		zap.String("event_id", event.ID),
		zap.Int("booking_id", event.Booking.ID),
		zap.Int("user_id", event.Booking.UserID),
		zap.String("title", title),
		zap.Int("seats", event.Booking.SeatsBooked),
		zap.Time("occurred_at", event.OccurredAt))
	return nil
}
