package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// FeedTab selects which visibility rule a feed read applies.
type FeedTab string

const (
	TabReels   FeedTab = "reels"   // global tab
	TabFriends FeedTab = "friends" // followed authors only
)

// Valid reports whether t is a known tab.
func (t FeedTab) Valid() bool {
	return t == TabReels || t == TabFriends
}

// Viewer is the identity a feed is evaluated for. It is built per request
// and never persisted.
type Viewer struct {
	UserID    primitive.ObjectID
	Following map[primitive.ObjectID]struct{}
}

// NewViewer builds a Viewer from a user id and the ids that user follows.
func NewViewer(userID primitive.ObjectID, following []primitive.ObjectID) Viewer {
	set := make(map[primitive.ObjectID]struct{}, len(following))
	for _, id := range following {
		set[id] = struct{}{}
	}
	return Viewer{UserID: userID, Following: set}
}

// Follows reports whether the viewer follows authorID.
func (v Viewer) Follows(authorID primitive.ObjectID) bool {
	_, ok := v.Following[authorID]
	return ok
}

// FollowingIDs returns the following set as a slice.
func (v Viewer) FollowingIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(v.Following))
	for id := range v.Following {
		ids = append(ids, id)
	}
	return ids
}

// CanView is the feed visibility predicate. It only looks at audience rules;
// status and demo filtering happen in EligibleForFeed.
//
// The friends tab is strictly narrower than the reels tab: it never shows a
// non-followed author, and never shows a followed author's private reel.
func CanView(viewer Viewer, reel *Reel, tab FeedTab) bool {
	if reel.AuthorID == viewer.UserID {
		return true
	}
	switch tab {
	case TabFriends:
		if !viewer.Follows(reel.AuthorID) {
			return false
		}
		return reel.Visibility == VisibilityPublic || reel.Visibility == VisibilityFollowers
	default:
		switch reel.Visibility {
		case VisibilityPublic:
			return true
		case VisibilityFollowers:
			return viewer.Follows(reel.AuthorID)
		}
		return false
	}
}

// EligibleForFeed reports whether reel may appear in viewer's feed for tab.
func EligibleForFeed(viewer Viewer, reel *Reel, tab FeedTab) bool {
	if reel.Status != StatusReady || reel.IsDemo() {
		return false
	}
	return CanView(viewer, reel, tab)
}
