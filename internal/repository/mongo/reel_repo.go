package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const reelCollectionName = "reels"

// mongoReelRepository implements repository.ReelRepository
type mongoReelRepository struct {
	collection *mongo.Collection
}

// NewMongoReelRepository creates a new Reel repository backed by MongoDB.
func NewMongoReelRepository(db *mongo.Database) repository.ReelRepository {
	return &mongoReelRepository{
		collection: db.Collection(reelCollectionName),
	}
}

// Create inserts a new reel. The caller may pre-assign the ID (the storage key
// is derived from it); otherwise one is generated here.
func (r *mongoReelRepository) Create(ctx context.Context, reel *domain.Reel) (primitive.ObjectID, error) {
	if reel.AuthorID == primitive.NilObjectID || reel.StorageKey == "" {
		return primitive.NilObjectID, errors.New("reel requires authorId and storageKey")
	}
	if reel.ID == primitive.NilObjectID {
		reel.ID = primitive.NewObjectID()
	}
	// Empty arrays rather than null so the pipeline updates below always see an array
	if reel.LikedBy == nil {
		reel.LikedBy = []primitive.ObjectID{}
	}
	if reel.SavedBy == nil {
		reel.SavedBy = []primitive.ObjectID{}
	}
	if reel.ViewedBy == nil {
		reel.ViewedBy = []primitive.ObjectID{}
	}

	result, err := r.collection.InsertOne(ctx, reel)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted reel ID")
	}
	return insertedID, nil
}

// GetByID retrieves a reel by its ID.
func (r *mongoReelRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Reel, error) {
	var reel domain.Reel
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &reel, nil
}

// UpdateMetadata applies an owner edit. Status is never touched here.
func (r *mongoReelRepository) UpdateMetadata(ctx context.Context, id primitive.ObjectID, patch domain.ReelPatch, at time.Time) (*domain.Reel, error) {
	set := bson.M{"updatedAt": at}
	if patch.Caption != nil {
		set["caption"] = *patch.Caption
	}
	if patch.Music != nil {
		set["music"] = *patch.Music
	}
	if patch.Visibility != nil {
		set["visibility"] = *patch.Visibility
	}
	if patch.ThumbURL != nil {
		set["thumbUrl"] = *patch.ThumbURL
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// RecordStoredObject records where locally transferred bytes can be fetched from.
func (r *mongoReelRepository) RecordStoredObject(ctx context.Context, id primitive.ObjectID, obj repository.StoredObject) (*domain.Reel, error) {
	set := bson.M{
		"originalUrl": obj.OriginalURL,
		"sizeBytes":   obj.SizeBytes,
		"updatedAt":   obj.At,
	}
	if obj.MimeType != "" {
		set["mimeType"] = obj.MimeType
	}
	if obj.FileName != "" {
		set["fileName"] = obj.FileName
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

// ApplyTransition writes a status change guarded by the expected current status.
func (r *mongoReelRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, change repository.StatusChange) (*domain.Reel, error) {
	set := bson.M{
		"status":    change.To,
		"updatedAt": change.At,
	}
	update := bson.M{"$set": set}

	if change.To == domain.StatusFailed {
		set["failureReason"] = change.FailureReason
	} else {
		update["$unset"] = bson.M{"failureReason": ""}
	}
	if change.ProcessedAt != nil {
		set["processedAt"] = *change.ProcessedAt
	}
	if change.StorageKey != nil {
		set["storageKey"] = *change.StorageKey
	}
	if change.OriginalURL != nil {
		set["originalUrl"] = *change.OriginalURL
	}
	if m := change.Ready; m != nil {
		set["playbackUrl"] = m.PlaybackURL
		if m.ThumbURL != nil {
			set["thumbUrl"] = *m.ThumbURL
		}
		if m.Music != nil {
			set["music"] = *m.Music
		}
		if m.Duration != nil {
			set["duration"] = *m.Duration
		}
		if m.Width != nil {
			set["width"] = *m.Width
		}
		if m.Height != nil {
			set["height"] = *m.Height
		}
	}

	reel, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "status": change.From}, update)
	if errors.Is(err, repository.ErrNotFound) {
		// Distinguish a deleted reel from one whose status moved underneath us
		if _, getErr := r.GetByID(ctx, id); getErr == nil {
			return nil, repository.ErrStaleStatus
		}
	}
	return reel, err
}

// Delete hard-deletes a reel.
func (r *mongoReelRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ToggleMember flips membership with a single pipeline update so that the set
// and its counter change together and concurrent togglers never lose a write.
func (r *mongoReelRepository) ToggleMember(ctx context.Context, id primitive.ObjectID, set repository.EngagementSet, userID primitive.ObjectID) (bool, int, error) {
	current := bson.M{"$ifNull": bson.A{"$" + set.Field, bson.A{}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			set.Field: bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{userID, current}},
				bson.M{"$setDifference": bson.A{current, bson.A{userID}}},
				bson.M{"$concatArrays": bson.A{current, bson.A{userID}}},
			}},
			"updatedAt": time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{set.Counter: bson.M{"$size": "$" + set.Field}}}},
	}

	reel, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "status": domain.StatusReady}, pipeline)
	if err != nil {
		return false, 0, err
	}
	members := membersOf(reel, set)
	return domain.HasMember(members, userID), len(members), nil
}

// AddMember adds userID to the set if absent. A repeat is a no-op that leaves
// updatedAt alone and still reports the current size.
func (r *mongoReelRepository) AddMember(ctx context.Context, id primitive.ObjectID, set repository.EngagementSet, userID primitive.ObjectID) (int, error) {
	current := bson.M{"$ifNull": bson.A{"$" + set.Field, bson.A{}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"updatedAt": bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{userID, current}},
				"$updatedAt",
				time.Now().UTC(),
			}},
			set.Field: bson.M{"$setUnion": bson.A{current, bson.A{userID}}},
		}}},
		{{Key: "$set", Value: bson.M{set.Counter: bson.M{"$size": "$" + set.Field}}}},
	}

	reel, err := r.findOneAndUpdate(ctx, bson.M{"_id": id, "status": domain.StatusReady}, pipeline)
	if err != nil {
		return 0, err
	}
	return len(membersOf(reel, set)), nil
}

// ListFeed returns ready, non-demo reels matching the viewer's audience rules, newest first.
func (r *mongoReelRepository) ListFeed(ctx context.Context, query repository.FeedQuery) ([]domain.Reel, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(query.Limit))
	return r.find(ctx, feedFilter(query), findOptions)
}

// ListByAuthor returns all of an author's reels in any status, newest first.
func (r *mongoReelRepository) ListByAuthor(ctx context.Context, authorID primitive.ObjectID, limit int) ([]domain.Reel, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"authorId": authorID}, findOptions)
}

// ListStale returns reels stuck in one of statuses since before, oldest first.
func (r *mongoReelRepository) ListStale(ctx context.Context, statuses []domain.ReelStatus, before time.Time, limit int) ([]domain.Reel, error) {
	filter := bson.M{
		"status":    bson.M{"$in": statuses},
		"updatedAt": bson.M{"$lt": before},
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, findOptions)
}

// feedFilter translates domain.EligibleForFeed into a query document.
func feedFilter(query repository.FeedQuery) bson.M {
	viewerID := query.Viewer.UserID
	following := query.Viewer.FollowingIDs()

	var audience bson.A
	switch query.Tab {
	case domain.TabFriends:
		audience = bson.A{
			bson.M{"authorId": viewerID},
			bson.M{
				"authorId":   bson.M{"$in": following},
				"visibility": bson.M{"$in": bson.A{domain.VisibilityPublic, domain.VisibilityFollowers}},
			},
		}
	default:
		audience = bson.A{
			bson.M{"authorId": viewerID},
			bson.M{"visibility": domain.VisibilityPublic},
			bson.M{
				"visibility": domain.VisibilityFollowers,
				"authorId":   bson.M{"$in": following},
			},
		}
	}

	return bson.M{
		"status":     domain.StatusReady,
		"storageKey": bson.M{"$not": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(domain.DemoNamespace)}},
		"$or":        audience,
	}
}

func (r *mongoReelRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]domain.Reel, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reels := []domain.Reel{}
	if err = cursor.All(ctx, &reels); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return reels, nil
}

func (r *mongoReelRepository) findOneAndUpdate(ctx context.Context, filter interface{}, update interface{}) (*domain.Reel, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reel domain.Reel
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&reel)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &reel, nil
}

func membersOf(reel *domain.Reel, set repository.EngagementSet) []primitive.ObjectID {
	switch set {
	case repository.LikesSet:
		return reel.LikedBy
	case repository.SavesSet:
		return reel.SavedBy
	default:
		return reel.ViewedBy
	}
}

// EnsureReelIndexes creates necessary indexes for the reels collection.
func EnsureReelIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Feed reads: ready reels newest first
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Own-reels listing
			Keys:    bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Orphan report
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "updatedAt", Value: 1}},
			Options: options.Index(),
		},
		{
			// Orphaned-object lookups by key
			Keys:    bson.D{{Key: "storageKey", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// EnsureIndexes creates the indexes for every collection this service owns.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureUserIndexes(ctx, db.Collection(userCollectionName)); err != nil {
		return err
	}
	return EnsureReelIndexes(ctx, db.Collection(reelCollectionName))
}
