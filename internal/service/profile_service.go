package service

import (
	"context"

	"event-ticketing/internal/access"
	"event-ticketing/internal/model"
	"event-ticketing/internal/repository"
)

type ProfileService interface {
	GetProfile(ctx context.Context, p model.Principal, userID int) (*model.UserProfile, error)
	// EnsureProfile 以 token claims 建立或同步呼叫者的 profile
	EnsureProfile(ctx context.Context, p model.Principal) (*model.UserProfile, error)
}

type ProfileServiceImpl struct {
	policy access.Policy
	users  repository.UserRepository
}

func NewProfileService(policy access.Policy, users repository.UserRepository) ProfileService {
	return &ProfileServiceImpl{policy: policy, users: users}
}

func (s *ProfileServiceImpl) GetProfile(ctx context.Context, p model.Principal, userID int) (*model.UserProfile, error) {
	if err := s.policy.Authorize(p, access.ResourceProfile, access.ActionRead, userID); err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

func (s *ProfileServiceImpl) EnsureProfile(ctx context.Context, p model.Principal) (*model.UserProfile, error) {
	if err := s.policy.Authorize(p, access.ResourceProfile, access.ActionRead, p.UserID); err != nil {
		return nil, err
	}
	return s.users.Upsert(ctx, p.Profile())
}
