package service

import (
	"context"
	"errors"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SocialService maintains the follow graph that feed visibility reads.
type SocialService interface {
	Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) error
	Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
}

type socialService struct {
	userRepo repository.UserRepository
}

// NewSocialService creates a new instance of socialService.
func NewSocialService(userRepo repository.UserRepository) SocialService {
	return &socialService{userRepo: userRepo}
}

func (s *socialService) Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) error {
	if followerID == followeeID {
		return validationError("users cannot follow themselves")
	}
	if _, err := s.userRepo.GetByID(ctx, followeeID); err != nil {
		return mapUserError(err)
	}
	return mapUserError(s.userRepo.Follow(ctx, followerID, followeeID))
}

// Unfollow is a no-op when the follow edge does not exist.
func (s *socialService) Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) error {
	return mapUserError(s.userRepo.Unfollow(ctx, followerID, followeeID))
}

func (s *socialService) Me(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	user.PasswordHash = ""
	return user, nil
}

func mapUserError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
