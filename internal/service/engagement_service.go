package service

import (
	"context"
	"errors"

	"reelsapp/reels-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToggleResult is the outcome of a like or save toggle.
type ToggleResult struct {
	Active bool
	Count  int
}

// EngagementService tracks likes, saves and views on ready reels.
type EngagementService interface {
	ToggleLike(ctx context.Context, reelID, userID primitive.ObjectID) (ToggleResult, error)
	ToggleSave(ctx context.Context, reelID, userID primitive.ObjectID) (ToggleResult, error)
	// RecordView is idempotent per user; repeated calls return the current count.
	RecordView(ctx context.Context, reelID, userID primitive.ObjectID) (int, error)
}

type engagementService struct {
	reelRepo repository.ReelRepository
}

// NewEngagementService creates a new instance of engagementService.
func NewEngagementService(reelRepo repository.ReelRepository) EngagementService {
	return &engagementService{reelRepo: reelRepo}
}

func (s *engagementService) ToggleLike(ctx context.Context, reelID, userID primitive.ObjectID) (ToggleResult, error) {
	return s.toggle(ctx, reelID, repository.LikesSet, userID)
}

func (s *engagementService) ToggleSave(ctx context.Context, reelID, userID primitive.ObjectID) (ToggleResult, error) {
	return s.toggle(ctx, reelID, repository.SavesSet, userID)
}

func (s *engagementService) toggle(ctx context.Context, reelID primitive.ObjectID, set repository.EngagementSet, userID primitive.ObjectID) (ToggleResult, error) {
	active, count, err := s.reelRepo.ToggleMember(ctx, reelID, set, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ToggleResult{}, ErrReelNotFound
		}
		return ToggleResult{}, err
	}
	return ToggleResult{Active: active, Count: count}, nil
}

func (s *engagementService) RecordView(ctx context.Context, reelID, userID primitive.ObjectID) (int, error) {
	count, err := s.reelRepo.AddMember(ctx, reelID, repository.ViewsSet, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrReelNotFound
		}
		return 0, err
	}
	return count, nil
}
