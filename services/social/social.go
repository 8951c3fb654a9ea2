// Package social stores per-movie engagement (likes, shares) and comments.
//
// Likes toggle and are tracked per user; shares only ever increment. Comment
// threads are flat and paginated, and only the author may delete a comment.
package social

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cvmongo "github.com/cineverse/cineverse/internal/mongo"
)

// maxCommentLength bounds a single comment body.
const maxCommentLength = 1000

// ErrNotFound is returned when a comment lookup matches nothing.
var ErrNotFound = errors.New("social: not found")

// ErrForbidden is returned when a user deletes someone else's comment.
var ErrForbidden = errors.New("social: not the comment author")

// Engagement is the aggregate interaction state for one movie.
type Engagement struct {
	MovieID  int      `bson:"movieId" json:"movie_id"`
	Likes    int      `bson:"likes" json:"likes"`
	Shares   int      `bson:"shares" json:"shares"`
	LikedBy  []string `bson:"likedBy,omitempty" json:"-"`
	SharedBy []string `bson:"sharedBy,omitempty" json:"-"`
}

// Comment is one user comment on a movie.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MovieID   int                `bson:"movieId" json:"movie_id"`
	UserID    string             `bson:"userId" json:"user_id"`
	UserName  string             `bson:"userName,omitempty" json:"user_name,omitempty"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// Store provides access to the engagement and comment collections.
type Store struct {
	engagement *mongo.Collection
	comments   *mongo.Collection
}

// NewStore creates a Store over the shared database.
func NewStore(db *cvmongo.DB) *Store {
	return &Store{
		engagement: db.C(cvmongo.ColEngagement),
		comments:   db.C(cvmongo.ColComments),
	}
}

// Engagement returns the movie's counts. A movie nobody has touched yet
// returns zeros, not an error.
func (s *Store) Engagement(ctx context.Context, movieID int) (*Engagement, error) {
	var e Engagement
	err := s.engagement.FindOne(ctx, bson.M{"movieId": movieID}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &Engagement{MovieID: movieID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ToggleLike flips the user's like. Returns the new state and counts.
func (s *Store) ToggleLike(ctx context.Context, movieID int, userID string) (liked bool, e *Engagement, err error) {
	// Unlike first: only matches when the user already liked the movie.
	res, err := s.engagement.UpdateOne(ctx,
		bson.M{"movieId": movieID, "likedBy": userID},
		bson.M{"$pull": bson.M{"likedBy": userID}, "$inc": bson.M{"likes": -1}})
	if err != nil {
		return false, nil, err
	}
	if res.ModifiedCount == 0 {
		_, err = s.engagement.UpdateOne(ctx,
			bson.M{"movieId": movieID},
			bson.M{"$addToSet": bson.M{"likedBy": userID}, "$inc": bson.M{"likes": 1}},
			options.Update().SetUpsert(true))
		if err != nil {
			return false, nil, err
		}
		liked = true
	}

	e, err = s.Engagement(ctx, movieID)
	return liked, e, err
}

// AddShare increments the movie's share count. Repeat shares by the same user
// still count; sharedBy only records who has ever shared.
func (s *Store) AddShare(ctx context.Context, movieID int, userID string) (*Engagement, error) {
	update := bson.M{"$inc": bson.M{"shares": 1}}
	if userID != "" {
		update["$addToSet"] = bson.M{"sharedBy": userID}
	}
	_, err := s.engagement.UpdateOne(ctx, bson.M{"movieId": movieID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return nil, err
	}
	return s.Engagement(ctx, movieID)
}

// Comments returns one page of a movie's comments, newest first.
func (s *Store) Comments(ctx context.Context, movieID, page, limit int) ([]Comment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	filter := bson.M{"movieId": movieID}
	total, err := s.comments.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cur, err := s.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []Comment
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// AddComment validates and inserts one comment.
func (s *Store) AddComment(ctx context.Context, c Comment) (*Comment, error) {
	if c.Text == "" {
		return nil, errors.New("social: comment text is required")
	}
	if len(c.Text) > maxCommentLength {
		return nil, errors.New("social: comment exceeds 1000 characters")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	res, err := s.comments.InsertOne(ctx, c)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		c.ID = oid
	}
	return &c, nil
}

// DeleteComment removes a comment if and only if userID is its author.
func (s *Store) DeleteComment(ctx context.Context, commentID, userID string) error {
	oid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return ErrNotFound
	}

	var c Comment
	err = s.comments.FindOne(ctx, bson.M{"_id": oid}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrForbidden
	}

	_, err = s.comments.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	return err
}
