// users.go — user accounts, MongoDB-backed.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	cvmongo "github.com/cineverse/cineverse/internal/mongo"
)

// ErrUserNotFound is returned for lookups that match no account.
var ErrUserNotFound = errors.New("auth: user not found")

// ErrEmailTaken is returned when registering an email that already exists.
var ErrEmailTaken = errors.New("auth: email already registered")

// User is one account record. PasswordHash never serializes to JSON.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email" json:"email"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"`
	PasswordHash  string             `bson:"passwordHash" json:"-"`
	EmailVerified bool               `bson:"emailVerified" json:"email_verified"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
}

// UserStore persists accounts.
type UserStore struct {
	users *mongo.Collection
}

// NewUserStore creates a UserStore over the shared database.
func NewUserStore(db *cvmongo.DB) *UserStore {
	return &UserStore{users: db.C(cvmongo.ColUsers)}
}

// Create inserts a new unverified account. The unique email index turns
// duplicate inserts into ErrEmailTaken.
func (s *UserStore) Create(ctx context.Context, email, name, passwordHash string) (*User, error) {
	u := &User{
		Email:        normalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	res, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return u, nil
}

// FindByEmail returns the account for an email, or ErrUserNotFound.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.users.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID returns the account for a hex object id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	var u User
	err = s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MarkVerified flips the account's email verification flag.
func (s *UserStore) MarkVerified(ctx context.Context, email string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"email": normalizeEmail(email)},
		bson.M{"$set": bson.M{"emailVerified": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPassword replaces the account's password hash.
func (s *UserStore) SetPassword(ctx context.Context, email, passwordHash string) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"email": normalizeEmail(email)},
		bson.M{"$set": bson.M{"passwordHash": passwordHash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
