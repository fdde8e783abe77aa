package service

import (
	"context"
	"sync"
	"testing"

	"reelsapp/reels-api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToggleLikeAndSave(t *testing.T) {
	f := newReelFixture(t)
	engagement := NewEngagementService(f.repo)
	ctx := context.Background()
	reel := f.ready(t, primitive.NewObjectID(), domain.VisibilityPublic)
	user := primitive.NewObjectID()

	res, err := engagement.ToggleLike(ctx, reel.ID, user)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, Count: 1}, res)

	res, err = engagement.ToggleLike(ctx, reel.ID, user)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: false, Count: 0}, res)

	res, err = engagement.ToggleSave(ctx, reel.ID, user)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, Count: 1}, res)

	stored, err := f.repo.GetByID(ctx, reel.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.LikedBy)
	assert.Equal(t, []primitive.ObjectID{user}, stored.SavedBy)
	assert.Equal(t, len(stored.SavedBy), stored.SavesCount)
}

func TestEngagementRequiresReadyReel(t *testing.T) {
	f := newReelFixture(t)
	engagement := NewEngagementService(f.repo)
	ctx := context.Background()
	uploading := f.initiate(t, primitive.NewObjectID(), "")
	user := primitive.NewObjectID()

	_, err := engagement.ToggleLike(ctx, uploading.ID, user)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = engagement.ToggleSave(ctx, primitive.NewObjectID(), user)
	assert.ErrorIs(t, err, ErrReelNotFound)
	_, err = engagement.RecordView(ctx, uploading.ID, user)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordViewIsIdempotentPerUser(t *testing.T) {
	f := newReelFixture(t)
	engagement := NewEngagementService(f.repo)
	ctx := context.Background()
	reel := f.ready(t, primitive.NewObjectID(), domain.VisibilityPublic)
	first, second := primitive.NewObjectID(), primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		count, err := engagement.RecordView(ctx, reel.ID, first)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	}
	count, err := engagement.RecordView(ctx, reel.ID, second)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestConcurrentLikesKeepCountInSync(t *testing.T) {
	f := newReelFixture(t)
	engagement := NewEngagementService(f.repo)
	ctx := context.Background()
	reel := f.ready(t, primitive.NewObjectID(), domain.VisibilityPublic)

	const users = 40
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engagement.ToggleLike(ctx, reel.ID, primitive.NewObjectID())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.repo.GetByID(ctx, reel.ID)
	require.NoError(t, err)
	assert.Len(t, stored.LikedBy, users)
	assert.Equal(t, users, stored.LikesCount)
}
