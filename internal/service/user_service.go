package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"recipebox/internal/model"
	"recipebox/internal/moderation"
	"recipebox/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// FlaggedContentError reports profile fields rejected by the moderation filter.
type FlaggedContentError struct {
	Fields map[string][]string
}

func (e *FlaggedContentError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "content flagged in " + strings.Join(names, ", ")
}

type UserService interface {
	// Get returns the caller's profile, creating an empty one on first access.
	Get(ctx context.Context, userID, email string) (*model.BillingProfile, error)
	UpdateDetails(ctx context.Context, userID, email string, details model.ProfileDetails) (*model.BillingProfile, error)
}

type userService struct {
	repo   repository.ProfileRepository
	filter *moderation.Filter
}

func NewUserService(repo repository.ProfileRepository, filter *moderation.Filter) UserService {
	return &userService{repo: repo, filter: filter}
}

func (s *userService) Get(ctx context.Context, userID, email string) (*model.BillingProfile, error) {
	if err := s.repo.UpsertProfileStub(ctx, userID, email); err != nil {
		return nil, err
	}
	u, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) UpdateDetails(ctx context.Context, userID, email string, details model.ProfileDetails) (*model.BillingProfile, error) {
	flagged := map[string][]string{}
	if details.DisplayName != nil {
		if hits := s.filter.Check(*details.DisplayName); len(hits) > 0 {
			flagged["display_name"] = hits
		}
	}
	if details.Bio != nil {
		if hits := s.filter.Check(*details.Bio); len(hits) > 0 {
			flagged["bio"] = hits
		}
	}
	if len(flagged) > 0 {
		return nil, &FlaggedContentError{Fields: flagged}
	}

	if err := s.repo.UpsertProfileStub(ctx, userID, email); err != nil {
		return nil, err
	}
	u, err := s.repo.UpdateProfileDetails(ctx, userID, details)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
