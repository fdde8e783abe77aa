package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account that can author, watch and engage with reels.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Following holds the ids of users this user follows. Feed visibility
	// for followers-only reels is evaluated against it.
	Following []primitive.ObjectID `bson:"following,omitempty" json:"following,omitempty"`
}

// Viewer returns the feed identity of the user.
func (u *User) Viewer() Viewer {
	return NewViewer(u.ID, u.Following)
}
