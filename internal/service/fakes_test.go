package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/repository/memory"
	"reelsapp/reels-api/internal/storage"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStorage is an in-memory storage.FileStorage.
type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	presign   bool
	deleteErr error
	deleted   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) GeneratePresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if !f.presign {
		return "", storage.ErrPresignUnsupported
	}
	return "https://bucket.example.com/" + key + "?sig=1", nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example.com/" + key, nil
}

func (f *fakeStorage) PutObject(_ context.Context, key string, body []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return "http://localhost/media/" + key, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

var errStorageDown = errors.New("storage down")

type reelFixture struct {
	svc   *reelService
	repo  *memory.ReelRepository
	store *fakeStorage
	clock *time.Time
}

func newReelFixture(t *testing.T) *reelFixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &reelFixture{
		repo:  memory.NewReelRepository(),
		store: newFakeStorage(),
		clock: &now,
	}
	f.svc = NewReelService(f.repo, f.store).(*reelService)
	f.svc.now = func() time.Time { return *f.clock }
	return f
}

func (f *reelFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

// initiate creates a reel in uploading for author.
func (f *reelFixture) initiate(t *testing.T, author primitive.ObjectID, visibility domain.Visibility) *domain.Reel {
	t.Helper()
	reel, _, err := f.svc.Initiate(context.Background(), author, InitiateInput{
		Caption:    "clip",
		Visibility: visibility,
		FileName:   "clip.mp4",
		MimeType:   "video/mp4",
	})
	require.NoError(t, err)
	return reel
}

// ready drives a fresh reel all the way to ready.
func (f *reelFixture) ready(t *testing.T, author primitive.ObjectID, visibility domain.Visibility) *domain.Reel {
	t.Helper()
	ctx := context.Background()
	reel := f.initiate(t, author, visibility)
	_, err := f.svc.Complete(ctx, author, reel.ID, CompleteInput{})
	require.NoError(t, err)
	reel, err = f.svc.MarkReady(ctx, author, reel.ID, domain.ReadyMetadata{PlaybackURL: "https://cdn.example.com/" + reel.ID.Hex() + ".mp4"})
	require.NoError(t, err)
	f.advance(time.Second)
	return reel
}
