package memory

import (
	"context"
	"sync"
	"time"

	"reelsapp/reels-api/internal/domain"
	"reelsapp/reels-api/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository keeps users in a map keyed by id with a unique email index.
type UserRepository struct {
	mu      sync.Mutex
	users   map[primitive.ObjectID]*domain.User
	byEmail map[string]primitive.ObjectID
}

// NewUserRepository creates an empty in-memory user store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[primitive.ObjectID]*domain.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}

	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.users[user.ID] = cloneUser(user)
	r.byEmail[user.Email] = user.ID
	return user.ID, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(r.users[id]), nil
}

func (r *UserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *UserRepository) Follow(_ context.Context, followerID, followeeID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[followerID]
	if !ok {
		return repository.ErrNotFound
	}
	if !domain.HasMember(user.Following, followeeID) {
		user.Following = append(user.Following, followeeID)
	}
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) Unfollow(_ context.Context, followerID, followeeID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[followerID]
	if !ok {
		return repository.ErrNotFound
	}
	user.Following = without(user.Following, followeeID)
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneUser(user *domain.User) *domain.User {
	c := *user
	c.Following = append([]primitive.ObjectID(nil), user.Following...)
	return &c
}
