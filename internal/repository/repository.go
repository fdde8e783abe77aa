package repository

import (
	"context"
	"time"

	"reelsapp/reels-api/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound    = RepositoryError("not found")
	ErrDuplicate   = RepositoryError("duplicate key")
	ErrStaleStatus = RepositoryError("reel status changed concurrently")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// EngagementSet names one of the per-reel membership sets together with the
// counter that mirrors its size.
type EngagementSet struct {
	Field   string // bson name of the id array
	Counter string // bson name of the count field
}

var (
	LikesSet = EngagementSet{Field: "likedBy", Counter: "likesCount"}
	SavesSet = EngagementSet{Field: "savedBy", Counter: "savesCount"}
	ViewsSet = EngagementSet{Field: "viewedBy", Counter: "viewsCount"}
)

// StatusChange is a status transition together with every field it writes.
// It is applied only if the stored status still equals From.
type StatusChange struct {
	From          domain.ReelStatus
	To            domain.ReelStatus
	FailureReason string     // written when To is failed, cleared otherwise
	ProcessedAt   *time.Time // written when non-nil
	StorageKey    *string
	OriginalURL   *string
	Ready         *domain.ReadyMetadata
	At            time.Time
}

// StoredObject describes bytes persisted for a reel through the local transfer path.
type StoredObject struct {
	OriginalURL string
	MimeType    string
	FileName    string
	SizeBytes   int64
	At          time.Time
}

// FeedQuery selects the candidate rows for a feed read.
type FeedQuery struct {
	Viewer domain.Viewer
	Tab    domain.FeedTab
	Limit  int
}

// ReelRepository defines the interface for interacting with reel records.
type ReelRepository interface {
	Create(ctx context.Context, reel *domain.Reel) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Reel, error)
	UpdateMetadata(ctx context.Context, id primitive.ObjectID, patch domain.ReelPatch, at time.Time) (*domain.Reel, error)
	RecordStoredObject(ctx context.Context, id primitive.ObjectID, obj StoredObject) (*domain.Reel, error)
	ApplyTransition(ctx context.Context, id primitive.ObjectID, change StatusChange) (*domain.Reel, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ToggleMember flips userID's membership in set on a ready reel and
	// returns the new membership and set size. ErrNotFound covers both a
	// missing reel and one that is not ready.
	ToggleMember(ctx context.Context, id primitive.ObjectID, set EngagementSet, userID primitive.ObjectID) (bool, int, error)
	// AddMember adds userID to set on a ready reel if absent and returns the set size.
	AddMember(ctx context.Context, id primitive.ObjectID, set EngagementSet, userID primitive.ObjectID) (int, error)

	ListFeed(ctx context.Context, query FeedQuery) ([]domain.Reel, error)
	ListByAuthor(ctx context.Context, authorID primitive.ObjectID, limit int) ([]domain.Reel, error)
	// ListStale returns reels still in one of statuses whose last update is older than before.
	ListStale(ctx context.Context, statuses []domain.ReelStatus, before time.Time, limit int) ([]domain.Reel, error)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	Follow(ctx context.Context, followerID, followeeID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, followeeID primitive.ObjectID) error
}
