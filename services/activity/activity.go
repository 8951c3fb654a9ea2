// Package activity persists user interaction events and search history.
//
// The activity log is append-only: events are created by request handlers on
// every tracked interaction and never updated in place. There is no retention
// policy — reads are bounded instead (QueryRecent caps at 100), so unbounded
// storage growth is a deliberate, documented tradeoff.
package activity

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

// Activity types. PageView is the only type that may omit a movie id.
const (
	TypeSearch   = "search"
	TypeView     = "view"
	TypePlay     = "play"
	TypeLike     = "like"
	TypeComment  = "comment"
	TypeShare    = "share"
	TypePurchase = "purchase"
	TypePageView = "page_view"
)

// queryCap bounds how much history any ranking computation may read.
const queryCap = 100

// ErrMovieIDRequired is returned for movie-typed events without a movie id.
var ErrMovieIDRequired = errors.New("activity: movieId is required for this activity type")

// ErrTypeRequired is returned when the event has no activity type.
var ErrTypeRequired = errors.New("activity: activityType is required")

// Event is a single recorded user interaction.
type Event struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"userId,omitempty" json:"user_id,omitempty"`
	MovieID      int                `bson:"movieId,omitempty" json:"movie_id,omitempty"`
	ActivityType string             `bson:"activityType" json:"activity_type"`
	Timestamp    time.Time          `bson:"timestamp" json:"timestamp"`
	Metadata     Metadata           `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

// Metadata carries optional per-event payload.
type Metadata struct {
	SearchQuery string  `bson:"searchQuery,omitempty" json:"search_query,omitempty"`
	Duration    int     `bson:"duration,omitempty" json:"duration,omitempty"`
	Rating      float64 `bson:"rating,omitempty" json:"rating,omitempty"`
}

// RequiresMovie reports whether the given activity type must carry a movie id.
func RequiresMovie(activityType string) bool {
	return activityType != TypePageView
}

// Store provides access to the activity log.
type Store struct {
	events *mongo.Collection
}

// NewStore creates a Store over the shared database.
func NewStore(db *cvmongo.DB) *Store {
	return &Store{events: db.C(cvmongo.ColActivity)}
}

// Record appends one event. Movie-typed events without a movie id are
// rejected, never silently dropped.
func (s *Store) Record(ctx context.Context, ev Event) error {
	if ev.ActivityType == "" {
		return ErrTypeRequired
	}
	if ev.MovieID == 0 && RequiresMovie(ev.ActivityType) {
		return ErrMovieIDRequired
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	_, err := s.events.InsertOne(ctx, ev)
	return err
}

// QueryRecent returns up to limit events for the user, most recent first.
// limit is clamped to [1, 100].
func (s *Store) QueryRecent(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > queryCap {
		limit = queryCap
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.events.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
