package mongo

import (
	"testing"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFeedFilterReelsTab(t *testing.T) {
	viewerID := primitive.NewObjectID()
	followed := primitive.NewObjectID()
	query := repository.FeedQuery{
		Viewer: domain.NewViewer(viewerID, []primitive.ObjectID{followed}),
		Tab:    domain.TabReels,
		Limit:  80,
	}

	filter := feedFilter(query)
	assert.Equal(t, domain.StatusReady, filter["status"])
	assert.Equal(t, bson.M{"$not": primitive.Regex{Pattern: "^demo/"}}, filter["storageKey"])

	audience, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, audience, 3)
	assert.Equal(t, bson.M{"authorId": viewerID}, audience[0])
	assert.Equal(t, bson.M{"visibility": domain.VisibilityPublic}, audience[1])
	assert.Equal(t, bson.M{
		"visibility": domain.VisibilityFollowers,
		"authorId":   bson.M{"$in": []primitive.ObjectID{followed}},
	}, audience[2])
}

func TestFeedFilterFriendsTab(t *testing.T) {
	viewerID := primitive.NewObjectID()
	query := repository.FeedQuery{
		Viewer: domain.NewViewer(viewerID, nil),
		Tab:    domain.TabFriends,
		Limit:  80,
	}

	audience, ok := feedFilter(query)["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, audience, 2)

	followedClause, ok := audience[1].(bson.M)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$in": bson.A{domain.VisibilityPublic, domain.VisibilityFollowers}}, followedClause["visibility"])
	// An empty following set still yields a valid $in with no candidates
	assert.Equal(t, bson.M{"$in": []primitive.ObjectID{}}, followedClause["authorId"])
}

func TestMembersOf(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	reel := &domain.Reel{
		LikedBy:  []primitive.ObjectID{a},
		SavedBy:  []primitive.ObjectID{a, b},
		ViewedBy: []primitive.ObjectID{},
	}
	assert.Len(t, membersOf(reel, repository.LikesSet), 1)
	assert.Len(t, membersOf(reel, repository.SavesSet), 2)
	assert.Empty(t, membersOf(reel, repository.ViewsSet))
}
