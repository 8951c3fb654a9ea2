// Package mongo wraps MongoDB connection setup and collection access for
// CineVerse. All domain data lives in one database; collection names are
// centralized here so service packages never hardcode strings.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	ColUsers          = "users"
	ColMovies         = "movies"
	ColActivity       = "user_activity"
	ColSearchHistory  = "search_history"
	ColWatchlist      = "watchlist"
	ColViewingHistory = "viewing_history"
	ColEngagement     = "movie_engagement"
	ColComments       = "comments"
	ColPlans          = "subscription_plans"
	ColSubscriptions  = "user_subscriptions"
	ColPurchases      = "movie_purchases"
	ColTransactions   = "transactions"
)

// DB bundles the connected client and the application database.
type DB struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials MongoDB, pings it, and ensures indexes.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if dbName == "" {
		dbName = "cineverse"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	db := &DB{Client: client, DB: client.Database(dbName)}
	if err := db.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// C returns a collection handle by name.
func (d *DB) C(name string) *mongo.Collection {
	return d.DB.Collection(name)
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// ensureIndexes creates the indexes the query paths depend on.
func (d *DB) ensureIndexes(ctx context.Context) error {
	type idx struct {
		col    string
		models []mongo.IndexModel
	}
	unique := options.Index().SetUnique(true)

	all := []idx{
		{ColUsers, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		}},
		{ColMovies, []mongo.IndexModel{
			{Keys: bson.D{{Key: "tmdbId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "popularity", Value: -1}}},
		}},
		{ColActivity, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "movieId", Value: 1}, {Key: "activityType", Value: 1}}},
		}},
		{ColSearchHistory, []mongo.IndexModel{
			{Keys: bson.D{{Key: "searchCount", Value: -1}, {Key: "lastSearched", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "lastSearched", Value: -1}}},
		}},
		{ColWatchlist, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}}, Options: unique},
		}},
		{ColViewingHistory, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}}, Options: unique},
		}},
		{ColEngagement, []mongo.IndexModel{
			{Keys: bson.D{{Key: "movieId", Value: 1}}, Options: unique},
		}},
		{ColComments, []mongo.IndexModel{
			{Keys: bson.D{{Key: "movieId", Value: 1}, {Key: "createdAt", Value: -1}}},
		}},
		{ColSubscriptions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "endDate", Value: 1}}},
		}},
		{ColPurchases, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}}},
		}},
		{ColTransactions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "transactionDate", Value: -1}}},
		}},
	}

	for _, i := range all {
		if len(i.models) == 0 {
			continue
		}
		if _, err := d.C(i.col).Indexes().CreateMany(ctx, i.models); err != nil {
			return fmt.Errorf("mongo: indexes for %s: %w", i.col, err)
		}
	}
	return nil
}
