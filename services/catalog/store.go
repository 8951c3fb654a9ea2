// Package catalog persists the synced movie catalog in MongoDB.
//
// The catalog is a local mirror of normalized TMDB records, refreshed by the
// sync worker. It exists so title lookups and the similarity corpus do not
// hit the upstream API. Catalogs stay small (hundreds to low thousands of
// records), which is what makes the linear similarity scan acceptable.
package catalog

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	cvmongo "github.com/cineverse/cineverse/internal/mongo"
	"github.com/cineverse/cineverse/services/tmdb"
)

// ErrNotFound is returned when no catalog record matches a lookup.
var ErrNotFound = errors.New("catalog: movie not found")

// Store provides access to the movie catalog collection.
type Store struct {
	movies *mongo.Collection
}

// NewStore creates a Store over the shared database.
func NewStore(db *cvmongo.DB) *Store {
	return &Store{movies: db.C(cvmongo.ColMovies)}
}

// Upsert inserts or refreshes one movie, keyed by TMDB id.
func (s *Store) Upsert(ctx context.Context, m tmdb.Movie) error {
	update := bson.M{
		"$set": bson.M{
			"title":       m.Title,
			"overview":    m.Overview,
			"releaseDate": m.ReleaseDate,
			"posterUrl":   m.PosterURL,
			"backdropUrl": m.BackdropURL,
			"rating":      m.Rating,
			"popularity":  m.Popularity,
			"genres":      m.Genres,
			"updatedAt":   time.Now(),
		},
	}
	_, err := s.movies.UpdateOne(ctx, bson.M{"tmdbId": m.ID}, update, options.Update().SetUpsert(true))
	return err
}

// FindByTitle returns the first movie whose title contains the given string,
// case-insensitively. Returns ErrNotFound when nothing matches.
func (s *Store) FindByTitle(ctx context.Context, title string) (*tmdb.Movie, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(title), Options: "i"}

	var m tmdb.Movie
	err := s.movies.FindOne(ctx, bson.M{"title": pattern}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AllExcept returns every catalog movie except the one with the given TMDB id.
func (s *Store) AllExcept(ctx context.Context, excludeID int) ([]tmdb.Movie, error) {
	cur, err := s.movies.Find(ctx, bson.M{"tmdbId": bson.M{"$ne": excludeID}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var movies []tmdb.Movie
	if err := cur.All(ctx, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// Recent returns the newest catalog movies by release date.
func (s *Store) Recent(ctx context.Context, limit int) ([]tmdb.Movie, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "releaseDate", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.movies.Find(ctx, bson.M{"releaseDate": bson.M{"$ne": ""}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var movies []tmdb.Movie
	if err := cur.All(ctx, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// Count returns the catalog size, for the sync worker's gauge.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.movies.CountDocuments(ctx, bson.M{})
}
