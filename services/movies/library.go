// library.go — per-user watchlist and viewing history, MongoDB-backed.
package movies

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cvmongo "github.com/cineverse/cineverse/internal/mongo"
)

// WatchlistItem is one saved movie.
type WatchlistItem struct {
	UserID    string    `bson:"userId" json:"-"`
	MovieID   int       `bson:"movieId" json:"movie_id"`
	Title     string    `bson:"title" json:"title"`
	PosterURL string    `bson:"posterUrl,omitempty" json:"poster_url,omitempty"`
	AddedAt   time.Time `bson:"addedAt" json:"added_at"`
}

// HistoryItem is one movie's viewing progress.
type HistoryItem struct {
	UserID    string    `bson:"userId" json:"-"`
	MovieID   int       `bson:"movieId" json:"movie_id"`
	Title     string    `bson:"title,omitempty" json:"title,omitempty"`
	Progress  int       `bson:"progress" json:"progress"` // seconds watched
	Duration  int       `bson:"duration,omitempty" json:"duration,omitempty"`
	WatchedAt time.Time `bson:"watchedAt" json:"watched_at"`
}

// MongoWatchlist implements WatchlistStore.
type MongoWatchlist struct {
	col *mongo.Collection
}

// NewMongoWatchlist creates a watchlist store over the shared database.
func NewMongoWatchlist(db *cvmongo.DB) *MongoWatchlist {
	return &MongoWatchlist{col: db.C(cvmongo.ColWatchlist)}
}

// List returns the user's watchlist, most recently added first.
func (s *MongoWatchlist) List(ctx context.Context, userID string) ([]WatchlistItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "addedAt", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []WatchlistItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Add upserts one watchlist entry. Re-adding a saved movie refreshes addedAt
// instead of duplicating it.
func (s *MongoWatchlist) Add(ctx context.Context, userID string, item WatchlistItem) error {
	item.UserID = userID
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	filter := bson.M{"userId": userID, "movieId": item.MovieID}
	_, err := s.col.ReplaceOne(ctx, filter, item, options.Replace().SetUpsert(true))
	return err
}

// Remove deletes one watchlist entry. Removing an absent movie is a no-op.
func (s *MongoWatchlist) Remove(ctx context.Context, userID string, movieID int) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"userId": userID, "movieId": movieID})
	return err
}

// MongoHistory implements HistoryStore.
type MongoHistory struct {
	col *mongo.Collection
}

// NewMongoHistory creates a viewing history store over the shared database.
func NewMongoHistory(db *cvmongo.DB) *MongoHistory {
	return &MongoHistory{col: db.C(cvmongo.ColViewingHistory)}
}

// List returns the user's viewing history, most recently watched first.
func (s *MongoHistory) List(ctx context.Context, userID string, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "watchedAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var items []HistoryItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Upsert records or refreshes one movie's viewing progress.
func (s *MongoHistory) Upsert(ctx context.Context, userID string, item HistoryItem) error {
	item.UserID = userID
	if item.WatchedAt.IsZero() {
		item.WatchedAt = time.Now()
	}
	filter := bson.M{"userId": userID, "movieId": item.MovieID}
	_, err := s.col.ReplaceOne(ctx, filter, item, options.Replace().SetUpsert(true))
	return err
}
