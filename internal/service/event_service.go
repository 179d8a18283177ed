package service

import (
	"context"

	"event-ticketing/internal/access"
	"event-ticketing/internal/model"
	"event-ticketing/internal/repository"
	apperrors "event-ticketing/pkg/app_errors"
)

type EventService interface {
	ListEvents(ctx context.Context, p model.Principal) ([]*model.Event, error)
	GetEvent(ctx context.Context, p model.Principal, id int) (*model.Event, error)
	// SaveEvent 建立或更新活動，依 command 類型分流
	SaveEvent(ctx context.Context, p model.Principal, cmd model.EventCommand) (*model.Event, error)
	DeleteEvent(ctx context.Context, p model.Principal, id int) error
}

type EventServiceImpl struct {
	policy access.Policy
	repo   repository.EventStore
}

func NewEventService(policy access.Policy, repo repository.EventStore) EventService {
	return &EventServiceImpl{policy: policy, repo: repo}
}

func (s *EventServiceImpl) ListEvents(ctx context.Context, p model.Principal) ([]*model.Event, error) {
	if err := s.policy.Authorize(p, access.ResourceEvent, access.ActionList, 0); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, p model.Principal, id int) (*model.Event, error) {
	if err := s.policy.Authorize(p, access.ResourceEvent, access.ActionRead, 0); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *EventServiceImpl) SaveEvent(ctx context.Context, p model.Principal, cmd model.EventCommand) (*model.Event, error) {
	switch c := cmd.(type) {
	case model.CreateEventCommand:
		if err := s.policy.Authorize(p, access.ResourceEvent, access.ActionCreate, 0); err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return s.repo.Create(ctx, c.Event())

	case model.UpdateEventCommand:
		if err := s.policy.Authorize(p, access.ResourceEvent, access.ActionUpdate, 0); err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return s.repo.Update(ctx, c)
	}
	return nil, apperrors.ErrInvalidInput
}

// DeleteEvent removes the event together with its bookings.
func (s *EventServiceImpl) DeleteEvent(ctx context.Context, p model.Principal, id int) error {
	if err := s.policy.Authorize(p, access.ResourceEvent, access.ActionDelete, 0); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
