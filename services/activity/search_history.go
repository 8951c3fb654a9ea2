// search_history.go — aggregated search history, keyed by (query, user).
//
// Unlike the raw activity log, search history is mutable: repeating a search
// bumps searchCount and lastSearched, and unions in the new result ids.
package activity

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cvmongo "github.com/cineverse/cineverse/internal/mongo"
)

// SearchRecord is one aggregated search entry.
type SearchRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"userId,omitempty" json:"user_id,omitempty"`
	Query        string             `bson:"query" json:"query"`
	MovieIDs     []int              `bson:"movieIds" json:"movie_ids"`
	SearchCount  int                `bson:"searchCount" json:"search_count"`
	LastSearched time.Time          `bson:"lastSearched" json:"last_searched"`
}

// SearchHistory provides access to the search history collection.
type SearchHistory struct {
	col *mongo.Collection
}

// NewSearchHistory creates a SearchHistory over the shared database.
func NewSearchHistory(db *cvmongo.DB) *SearchHistory {
	return &SearchHistory{col: db.C(cvmongo.ColSearchHistory)}
}

// RecordSearch upserts the (query, user) entry: increments searchCount,
// refreshes lastSearched, and unions in up to 10 of the result movie ids.
func (h *SearchHistory) RecordSearch(ctx context.Context, userID, query string, movieIDs []int) error {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	if len(movieIDs) > 10 {
		movieIDs = movieIDs[:10]
	}

	update := bson.M{
		"$inc": bson.M{"searchCount": 1},
		"$set": bson.M{"lastSearched": time.Now()},
		"$addToSet": bson.M{
			"movieIds": bson.M{"$each": movieIDs},
		},
	}
	filter := bson.M{"query": query, "userId": userID}

	_, err := h.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// TopSearches returns the most popular searches site-wide, ordered by
// (searchCount desc, lastSearched desc).
func (h *SearchHistory) TopSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "searchCount", Value: -1}, {Key: "lastSearched", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := h.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []SearchRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UserSearches returns one user's search history, most recent first.
func (h *SearchHistory) UserSearches(ctx context.Context, userID string, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "lastSearched", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := h.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []SearchRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteSearch removes one of the user's search entries by id.
func (h *SearchHistory) DeleteSearch(ctx context.Context, userID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = h.col.DeleteOne(ctx, bson.M{"_id": oid, "userId": userID})
	return err
}

// ClearSearches removes all of the user's search entries.
func (h *SearchHistory) ClearSearches(ctx context.Context, userID string) error {
	_, err := h.col.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}
