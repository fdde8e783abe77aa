package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanView(t *testing.T) {
	author := primitive.NewObjectID()
	follower := NewViewer(primitive.NewObjectID(), []primitive.ObjectID{author})
	stranger := NewViewer(primitive.NewObjectID(), nil)
	self := NewViewer(author, nil)

	reel := func(v Visibility) *Reel {
		return &Reel{AuthorID: author, Visibility: v, Status: StatusReady}
	}

	tests := []struct {
		name   string
		viewer Viewer
		vis    Visibility
		tab    FeedTab
		want   bool
	}{
		{"public reels tab stranger", stranger, VisibilityPublic, TabReels, true},
		{"public friends tab stranger", stranger, VisibilityPublic, TabFriends, false},
		{"public friends tab follower", follower, VisibilityPublic, TabFriends, true},
		{"followers reels tab follower", follower, VisibilityFollowers, TabReels, true},
		{"followers friends tab follower", follower, VisibilityFollowers, TabFriends, true},
		{"followers reels tab stranger", stranger, VisibilityFollowers, TabReels, false},
		{"followers friends tab stranger", stranger, VisibilityFollowers, TabFriends, false},
		{"private reels tab follower", follower, VisibilityPrivate, TabReels, false},
		{"private friends tab follower", follower, VisibilityPrivate, TabFriends, false},
		{"private reels tab stranger", stranger, VisibilityPrivate, TabReels, false},
		{"private reels tab author", self, VisibilityPrivate, TabReels, true},
		{"private friends tab author", self, VisibilityPrivate, TabFriends, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.viewer, reel(tt.vis), tt.tab))
		})
	}
}

func TestEligibleForFeed(t *testing.T) {
	author := primitive.NewObjectID()
	viewer := NewViewer(author, nil)

	ready := &Reel{AuthorID: author, Visibility: VisibilityPublic, Status: StatusReady, StorageKey: "reels/a/b/original.mp4"}
	assert.True(t, EligibleForFeed(viewer, ready, TabReels))

	processing := *ready
	processing.Status = StatusProcessing
	assert.False(t, EligibleForFeed(viewer, &processing, TabReels))

	demo := *ready
	demo.StorageKey = DemoNamespace + "clip.mp4"
	assert.False(t, EligibleForFeed(viewer, &demo, TabReels))
}

func TestFeedTabValid(t *testing.T) {
	assert.True(t, TabReels.Valid())
	assert.True(t, TabFriends.Valid())
	assert.False(t, FeedTab("explore").Valid())
}
