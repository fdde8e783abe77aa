package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visibility is the audience scope of a reel.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityFollowers Visibility = "followers"
	VisibilityPrivate   Visibility = "private"
)

// Valid reports whether v is one of the three allowed audiences.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFollowers, VisibilityPrivate:
		return true
	}
	return false
}

// ReelStatus tracks where a reel is in the upload pipeline.
type ReelStatus string

const (
	StatusUploading  ReelStatus = "uploading"
	StatusProcessing ReelStatus = "processing"
	StatusReady      ReelStatus = "ready"
	StatusFailed     ReelStatus = "failed"
)

// Field limits.
const (
	MaxCaptionLength       = 2200
	MaxMusicLength         = 180
	MaxFailureReasonLength = 280
)

// DemoNamespace is the storage-key prefix reserved for seed/demo rows.
// Reels stored under it never show up in general feed listings.
const DemoNamespace = "demo/"

// Reel is a short-video post. The video bytes live in the asset store under StorageKey.
type Reel struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID primitive.ObjectID `bson:"authorId" json:"authorId"` // Immutable after creation

	Caption     string  `bson:"caption" json:"caption"`
	Music       string  `bson:"music" json:"music"`
	StorageKey  string  `bson:"storageKey" json:"storageKey"`
	FileName    string  `bson:"fileName,omitempty" json:"fileName,omitempty"`
	MimeType    string  `bson:"mimeType,omitempty" json:"mimeType,omitempty"`
	SizeBytes   int64   `bson:"sizeBytes,omitempty" json:"sizeBytes,omitempty"`
	OriginalURL string  `bson:"originalUrl,omitempty" json:"originalUrl,omitempty"`
	PlaybackURL string  `bson:"playbackUrl,omitempty" json:"playbackUrl,omitempty"`
	ThumbURL    string  `bson:"thumbUrl,omitempty" json:"thumbUrl,omitempty"`
	Duration    float64 `bson:"duration" json:"duration"` // seconds
	Width       int     `bson:"width" json:"width"`
	Height      int     `bson:"height" json:"height"`

	Visibility    Visibility `bson:"visibility" json:"visibility"`
	Status        ReelStatus `bson:"status" json:"status"`
	FailureReason string     `bson:"failureReason,omitempty" json:"failureReason,omitempty"`

	// Engagement sets are the source of truth; the matching counters are
	// written in the same update as the set they summarise.
	LikedBy  []primitive.ObjectID `bson:"likedBy" json:"-"`
	SavedBy  []primitive.ObjectID `bson:"savedBy" json:"-"`
	ViewedBy []primitive.ObjectID `bson:"viewedBy" json:"-"`

	LikesCount    int `bson:"likesCount" json:"likesCount"`
	SavesCount    int `bson:"savesCount" json:"savesCount"`
	ViewsCount    int `bson:"viewsCount" json:"viewsCount"`
	CommentsCount int `bson:"commentsCount" json:"commentsCount"`
	RepostsCount  int `bson:"repostsCount" json:"repostsCount"`
	SharesCount   int `bson:"sharesCount" json:"sharesCount"`

	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
	ProcessedAt *time.Time `bson:"processedAt,omitempty" json:"processedAt,omitempty"` // Set once, on first arrival in ready
}

// IsOwnedBy reports whether userID authored the reel.
func (r *Reel) IsOwnedBy(userID primitive.ObjectID) bool {
	return r.AuthorID == userID
}

// IsDemo reports whether the reel is a seed row under the reserved namespace.
func (r *Reel) IsDemo() bool {
	return strings.HasPrefix(r.StorageKey, DemoNamespace)
}

// HasMember reports whether id is present in set.
func HasMember(set []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, member := range set {
		if member == id {
			return true
		}
	}
	return false
}

// ReelPatch carries an owner metadata edit. Nil fields are left untouched.
type ReelPatch struct {
	Caption    *string
	Music      *string
	Visibility *Visibility
	ThumbURL   *string
}

// ReadyMetadata is the playback metadata recorded when a reel becomes ready.
type ReadyMetadata struct {
	PlaybackURL string
	ThumbURL    *string
	Music       *string
	Duration    *float64
	Width       *int
	Height      *int
}
