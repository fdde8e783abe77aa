package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/logger"
	"reelsapp/reels-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultFeedLimit = 80
	DefaultMineLimit = 100
)

// ReelView is a reel as rendered for one viewer.
type ReelView struct {
	ID       string `json:"id"`
	AuthorID string `json:"authorId"`

	Caption     string  `json:"caption"`
	Music       string  `json:"music"`
	VideoURL    string  `json:"videoUrl,omitempty"`
	PlaybackURL string  `json:"playbackUrl,omitempty"`
	OriginalURL string  `json:"originalUrl,omitempty"`
	ThumbURL    string  `json:"thumbUrl,omitempty"`
	Duration    float64 `json:"duration"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`

	Visibility domain.Visibility `json:"visibility"`
	Status     domain.ReelStatus `json:"status"`

	// Owner-only
	StorageKey    string `json:"storageKey,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`

	LikesCount    int `json:"likesCount"`
	SavesCount    int `json:"savesCount"`
	ViewsCount    int `json:"viewsCount"`
	CommentsCount int `json:"commentsCount"`
	RepostsCount  int `json:"repostsCount"`
	SharesCount   int `json:"sharesCount"`

	LikedByMe bool `json:"likedByMe"`
	SavedByMe bool `json:"savedByMe"`
	OwnedByMe bool `json:"ownedByMe"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

// MapReelToView shapes reel for viewerID.
func MapReelToView(reel *domain.Reel, viewerID primitive.ObjectID) ReelView {
	owned := reel.IsOwnedBy(viewerID)
	view := ReelView{
		ID:            reel.ID.Hex(),
		AuthorID:      reel.AuthorID.Hex(),
		Caption:       reel.Caption,
		Music:         reel.Music,
		PlaybackURL:   reel.PlaybackURL,
		OriginalURL:   reel.OriginalURL,
		ThumbURL:      reel.ThumbURL,
		Duration:      reel.Duration,
		Width:         reel.Width,
		Height:        reel.Height,
		Visibility:    reel.Visibility,
		Status:        reel.Status,
		LikesCount:    preferCounter(reel.LikesCount, reel.LikedBy),
		SavesCount:    preferCounter(reel.SavesCount, reel.SavedBy),
		ViewsCount:    preferCounter(reel.ViewsCount, reel.ViewedBy),
		CommentsCount: reel.CommentsCount,
		RepostsCount:  reel.RepostsCount,
		SharesCount:   reel.SharesCount,
		LikedByMe:     domain.HasMember(reel.LikedBy, viewerID),
		SavedByMe:     domain.HasMember(reel.SavedBy, viewerID),
		OwnedByMe:     owned,
		CreatedAt:     reel.CreatedAt,
		UpdatedAt:     reel.UpdatedAt,
		ProcessedAt:   reel.ProcessedAt,
	}

	view.VideoURL = reel.PlaybackURL
	if view.VideoURL == "" {
		view.VideoURL = reel.OriginalURL
	}
	if owned {
		view.StorageKey = reel.StorageKey
		view.FailureReason = reel.FailureReason
	}
	return view
}

func preferCounter(counter int, set []primitive.ObjectID) int {
	if counter > 0 {
		return counter
	}
	return len(set)
}

// FeedService assembles the per-viewer reel listings.
type FeedService interface {
	ListFeed(ctx context.Context, viewerID primitive.ObjectID, tab domain.FeedTab) ([]ReelView, error)
	ListMine(ctx context.Context, viewerID primitive.ObjectID) ([]ReelView, error)
}

type feedService struct {
	reelRepo  repository.ReelRepository
	userRepo  repository.UserRepository
	limit     int
	mineLimit int
}

// NewFeedService creates a new instance of feedService. Non-positive limits fall back to the defaults.
func NewFeedService(reelRepo repository.ReelRepository, userRepo repository.UserRepository, limit, mineLimit int) FeedService {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if mineLimit <= 0 {
		mineLimit = DefaultMineLimit
	}
	return &feedService{reelRepo: reelRepo, userRepo: userRepo, limit: limit, mineLimit: mineLimit}
}

func (s *feedService) ListFeed(ctx context.Context, viewerID primitive.ObjectID, tab domain.FeedTab) ([]ReelView, error) {
	if tab == "" {
		tab = domain.TabReels
	}
	if !tab.Valid() {
		return nil, validationError("tab must be one of reels, friends")
	}

	viewer, err := s.viewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	reels, err := s.reelRepo.ListFeed(ctx, repository.FeedQuery{Viewer: viewer, Tab: tab, Limit: s.limit})
	if err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}

	views := make([]ReelView, 0, len(reels))
	for i := range reels {
		if !domain.EligibleForFeed(viewer, &reels[i], tab) {
			logger.WithContext(ctx).WithField("reel_id", reels[i].ID.Hex()).Warn("feed query returned an ineligible reel")
			continue
		}
		views = append(views, MapReelToView(&reels[i], viewerID))
	}
	return views, nil
}

func (s *feedService) ListMine(ctx context.Context, viewerID primitive.ObjectID) ([]ReelView, error) {
	reels, err := s.reelRepo.ListByAuthor(ctx, viewerID, s.mineLimit)
	if err != nil {
		return nil, fmt.Errorf("list own reels: %w", err)
	}
	views := make([]ReelView, 0, len(reels))
	for i := range reels {
		views = append(views, MapReelToView(&reels[i], viewerID))
	}
	return views, nil
}

// viewer builds the feed identity. A viewer without a user record still gets
// the public feed.
func (s *feedService) viewer(ctx context.Context, viewerID primitive.ObjectID) (domain.Viewer, error) {
	user, err := s.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewViewer(viewerID, nil), nil
		}
		return domain.Viewer{}, fmt.Errorf("load viewer: %w", err)
	}
	return user.Viewer(), nil
}
