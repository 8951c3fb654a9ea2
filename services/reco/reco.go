// Package reco computes personalized movie rankings and content similarity.
//
// Two independent pieces live here:
//
//   - PersonalizedRanking: weighted-recency scoring over a user's activity
//     history, expanded through each seed movie's similar-list and backfilled
//     from trending, with a fallback chain for cold-start and upstream
//     outages.
//
//   - Similar: bag-of-words cosine similarity over the local catalog's
//     title+overview+genre text. Pure and deterministic; O(n·m) in candidate
//     count × vocabulary, acceptable only while catalogs stay small.
package reco

import (
	"context"
	"errors"

	"github.com/cineverse/cineverse/services/activity"
	"github.com/cineverse/cineverse/services/tmdb"
)

// ErrUpstreamUnavailable is returned only when every fallback tier failed.
var ErrUpstreamUnavailable = errors.New("reco: metadata source unavailable after all fallbacks")

// ErrNotFound is returned when a similarity lookup matches no catalog title.
var ErrNotFound = errors.New("reco: movie not found")

// MetadataSource is the subset of the TMDB client the engine consumes.
type MetadataSource interface {
	Popular(ctx context.Context, page int) (tmdb.MovieList, error)
	Trending(ctx context.Context, window string) ([]tmdb.Movie, error)
	TopRated(ctx context.Context, page int) (tmdb.MovieList, error)
	Details(ctx context.Context, id int) (*tmdb.MovieDetails, error)
}

// ActivitySource supplies a user's recent interaction events.
type ActivitySource interface {
	QueryRecent(ctx context.Context, userID string, limit int) ([]activity.Event, error)
}

// Catalog supplies the persisted movie corpus for similarity queries.
type Catalog interface {
	FindByTitle(ctx context.Context, title string) (*tmdb.Movie, error)
	AllExcept(ctx context.Context, excludeID int) ([]tmdb.Movie, error)
}

// Engine wires the three sources together.
type Engine struct {
	meta     MetadataSource
	activity ActivitySource
	catalog  Catalog
}

// NewEngine creates an Engine.
func NewEngine(meta MetadataSource, activitySrc ActivitySource, catalog Catalog) *Engine {
	return &Engine{meta: meta, activity: activitySrc, catalog: catalog}
}

// Tier identifies which source tier produced a ranking, for observability.
type Tier string

const (
	TierPersonalized    Tier = "personalized"
	TierColdStart       Tier = "cold_start"
	TierAnonymous       Tier = "anonymous"
	TierFallbackPopular Tier = "fallback_popular"
)

// Ranking is the result of PersonalizedRanking.
type Ranking struct {
	Movies []tmdb.Movie
	Tier   Tier
	// FailedSeeds counts seed-expansion sub-requests that failed. Non-zero
	// means the response was served degraded (still a success to the caller).
	FailedSeeds int
}
