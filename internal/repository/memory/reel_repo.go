// Package memory holds process-local repository implementations used for
// development runs (database.driver: memory) and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReelRepository is a mutex-guarded map of reels. Every method copies on the
// way in and out so callers never share slices with the store.
type ReelRepository struct {
	mu    sync.Mutex
	reels map[primitive.ObjectID]*domain.Reel
}

// NewReelRepository creates an empty in-memory reel store.
func NewReelRepository() *ReelRepository {
	return &ReelRepository{reels: make(map[primitive.ObjectID]*domain.Reel)}
}

var _ repository.ReelRepository = (*ReelRepository)(nil)

func (r *ReelRepository) Create(_ context.Context, reel *domain.Reel) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reel.ID == primitive.NilObjectID {
		reel.ID = primitive.NewObjectID()
	}
	if _, exists := r.reels[reel.ID]; exists {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	r.reels[reel.ID] = cloneReel(reel)
	return reel.ID, nil
}

func (r *ReelRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Reel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reel, ok := r.reels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneReel(reel), nil
}

func (r *ReelRepository) UpdateMetadata(_ context.Context, id primitive.ObjectID, patch domain.ReelPatch, at time.Time) (*domain.Reel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reel, ok := r.reels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Caption != nil {
		reel.Caption = *patch.Caption
	}
	if patch.Music != nil {
		reel.Music = *patch.Music
	}
	if patch.Visibility != nil {
		reel.Visibility = *patch.Visibility
	}
	if patch.ThumbURL != nil {
		reel.ThumbURL = *patch.ThumbURL
	}
	reel.UpdatedAt = at
	return cloneReel(reel), nil
}

func (r *ReelRepository) RecordStoredObject(_ context.Context, id primitive.ObjectID, obj repository.StoredObject) (*domain.Reel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reel, ok := r.reels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	reel.OriginalURL = obj.OriginalURL
	reel.SizeBytes = obj.SizeBytes
	if obj.MimeType != "" {
		reel.MimeType = obj.MimeType
	}
	if obj.FileName != "" {
		reel.FileName = obj.FileName
	}
	reel.UpdatedAt = obj.At
	return cloneReel(reel), nil
}

func (r *ReelRepository) ApplyTransition(_ context.Context, id primitive.ObjectID, change repository.StatusChange) (*domain.Reel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reel, ok := r.reels[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if reel.Status != change.From {
		return nil, repository.ErrStaleStatus
	}

	reel.Status = change.To
	reel.UpdatedAt = change.At
	if change.To == domain.StatusFailed {
		reel.FailureReason = change.FailureReason
	} else {
		reel.FailureReason = ""
	}
	if change.ProcessedAt != nil {
		at := *change.ProcessedAt
		reel.ProcessedAt = &at
	}
	if change.StorageKey != nil {
		reel.StorageKey = *change.StorageKey
	}
	if change.OriginalURL != nil {
		reel.OriginalURL = *change.OriginalURL
	}
	if m := change.Ready; m != nil {
		reel.PlaybackURL = m.PlaybackURL
		if m.ThumbURL != nil {
			reel.ThumbURL = *m.ThumbURL
		}
		if m.Music != nil {
			reel.Music = *m.Music
		}
		if m.Duration != nil {
			reel.Duration = *m.Duration
		}
		if m.Width != nil {
			reel.Width = *m.Width
		}
		if m.Height != nil {
			reel.Height = *m.Height
		}
	}
	return cloneReel(reel), nil
}

func (r *ReelRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reels[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.reels, id)
	return nil
}

func (r *ReelRepository) ToggleMember(_ context.Context, id primitive.ObjectID, set repository.EngagementSet, userID primitive.ObjectID) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reel, ok := r.reels[id]
	if !ok || reel.Status != domain.StatusReady {
		return false, 0, repository.ErrNotFound
	}

	members, counter := fieldsOf(reel, set)
	member := domain.HasMember(*members, userID)
	if member {
		*members = without(*members, userID)
	} else {
		*members = append(*members, userID)
	}
	*counter = len(*members)
	reel.UpdatedAt = time.Now().UTC()
	return !member, *counter, nil
}

func (r *ReelRepository) AddMember(_ context.Context, id primitive.ObjectID, set repository.EngagementSet, userID primitive.ObjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reel, ok := r.reels[id]
	if !ok || reel.Status != domain.StatusReady {
		return 0, repository.ErrNotFound
	}

	members, counter := fieldsOf(reel, set)
	if !domain.HasMember(*members, userID) {
		*members = append(*members, userID)
		reel.UpdatedAt = time.Now().UTC()
	}
	*counter = len(*members)
	return *counter, nil
}

func (r *ReelRepository) ListFeed(_ context.Context, query repository.FeedQuery) ([]domain.Reel, error) {
	return r.list(query.Limit, func(reel *domain.Reel) bool {
		return domain.EligibleForFeed(query.Viewer, reel, query.Tab)
	}, newestFirst), nil
}

func (r *ReelRepository) ListByAuthor(_ context.Context, authorID primitive.ObjectID, limit int) ([]domain.Reel, error) {
	return r.list(limit, func(reel *domain.Reel) bool {
		return reel.AuthorID == authorID
	}, newestFirst), nil
}

func (r *ReelRepository) ListStale(_ context.Context, statuses []domain.ReelStatus, before time.Time, limit int) ([]domain.Reel, error) {
	return r.list(limit, func(reel *domain.Reel) bool {
		if !reel.UpdatedAt.Before(before) {
			return false
		}
		for _, s := range statuses {
			if reel.Status == s {
				return true
			}
		}
		return false
	}, func(a, b *domain.Reel) bool { return a.UpdatedAt.Before(b.UpdatedAt) }), nil
}

func (r *ReelRepository) list(limit int, keep func(*domain.Reel) bool, less func(a, b *domain.Reel) bool) []domain.Reel {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*domain.Reel, 0, len(r.reels))
	for _, reel := range r.reels {
		if keep(reel) {
			matched = append(matched, reel)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]domain.Reel, len(matched))
	for i, reel := range matched {
		out[i] = *cloneReel(reel)
	}
	return out
}

func newestFirst(a, b *domain.Reel) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

func fieldsOf(reel *domain.Reel, set repository.EngagementSet) (*[]primitive.ObjectID, *int) {
	switch set {
	case repository.LikesSet:
		return &reel.LikedBy, &reel.LikesCount
	case repository.SavesSet:
		return &reel.SavedBy, &reel.SavesCount
	default:
		return &reel.ViewedBy, &reel.ViewsCount
	}
}

func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, member := range ids {
		if member != id {
			out = append(out, member)
		}
	}
	return out
}

func cloneReel(reel *domain.Reel) *domain.Reel {
	c := *reel
	c.LikedBy = append([]primitive.ObjectID(nil), reel.LikedBy...)
	c.SavedBy = append([]primitive.ObjectID(nil), reel.SavedBy...)
	c.ViewedBy = append([]primitive.ObjectID(nil), reel.ViewedBy...)
	if reel.ProcessedAt != nil {
		at := *reel.ProcessedAt
		c.ProcessedAt = &at
	}
	return &c
}
