// Package movies is the public catalog and discovery API.
//
// It fronts the TMDB client for browse/search endpoints, the reco engine for
// personalized rankings and similarity, and the activity stores for tracking
// and per-user library features (watchlist, viewing history, search history).
package movies

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/services/activity"
	"github.com/cineverse/cineverse/services/reco"
	"github.com/cineverse/cineverse/services/tmdb"
)

// Metadata is the subset of the TMDB client the movie API consumes.
type Metadata interface {
	Popular(ctx context.Context, page int) (tmdb.MovieList, error)
	Trending(ctx context.Context, window string) ([]tmdb.Movie, error)
	TopRated(ctx context.Context, page int) (tmdb.MovieList, error)
	NowPlaying(ctx context.Context, page int) (tmdb.MovieList, error)
	Upcoming(ctx context.Context, page int) (tmdb.MovieList, error)
	ByGenre(ctx context.Context, genreID, page int) (tmdb.MovieList, error)
	RecentReleases(ctx context.Context, page int) (tmdb.MovieList, error)
	Search(ctx context.Context, query string, page int) (tmdb.MovieList, error)
	Details(ctx context.Context, id int) (*tmdb.MovieDetails, error)
	Genres(ctx context.Context) ([]tmdb.Genre, error)
}

// Recommender produces rankings and similarity lists.
type Recommender interface {
	PersonalizedRanking(ctx context.Context, userID string) (*reco.Ranking, error)
	Similar(ctx context.Context, title string, topK int) (*tmdb.Movie, []reco.SimilarityResult, error)
}

// ActivityLog appends interaction events.
type ActivityLog interface {
	Record(ctx context.Context, ev activity.Event) error
}

// SearchLog is the aggregated search history store.
type SearchLog interface {
	RecordSearch(ctx context.Context, userID, query string, movieIDs []int) error
	TopSearches(ctx context.Context, limit int) ([]activity.SearchRecord, error)
	UserSearches(ctx context.Context, userID string, limit int) ([]activity.SearchRecord, error)
	DeleteSearch(ctx context.Context, userID, id string) error
	ClearSearches(ctx context.Context, userID string) error
}

// CatalogReader exposes the synced local catalog to the aggregation endpoints.
type CatalogReader interface {
	Recent(ctx context.Context, limit int) ([]tmdb.Movie, error)
}

// WatchlistStore persists per-user watchlists.
type WatchlistStore interface {
	List(ctx context.Context, userID string) ([]WatchlistItem, error)
	Add(ctx context.Context, userID string, item WatchlistItem) error
	Remove(ctx context.Context, userID string, movieID int) error
}

// HistoryStore persists per-user viewing progress.
type HistoryStore interface {
	List(ctx context.Context, userID string, limit int) ([]HistoryItem, error)
	Upsert(ctx context.Context, userID string, item HistoryItem) error
}

// Server is the movie API service.
type Server struct {
	meta      Metadata
	reco      Recommender
	events    ActivityLog
	searches  SearchLog
	catalog   CatalogReader
	watchlist WatchlistStore
	history   HistoryStore
	log       *slog.Logger
}

// NewServer wires the movie API.
func NewServer(meta Metadata, rec Recommender, events ActivityLog, searches SearchLog,
	cat CatalogReader, wl WatchlistStore, hist HistoryStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		meta:      meta,
		reco:      rec,
		events:    events,
		searches:  searches,
		catalog:   cat,
		watchlist: wl,
		history:   hist,
		log:       log,
	}
}

// RegisterRoutes mounts every movie API route on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	get := func(pattern, path string, h http.HandlerFunc) {
		mux.Handle("GET "+pattern, metrics.Middleware(path, h))
	}

	get("/api/movies/popular", "/api/movies/popular", s.handlePopular)
	get("/api/movies/trending", "/api/movies/trending", s.handleTrending)
	get("/api/movies/top-rated", "/api/movies/top-rated", s.handleTopRated)
	get("/api/movies/now-playing", "/api/movies/now-playing", s.handleNowPlaying)
	get("/api/movies/upcoming", "/api/movies/upcoming", s.handleUpcoming)
	get("/api/movies/genres", "/api/movies/genres", s.handleGenres)
	get("/api/movies/genre/{id}", "/api/movies/genre/{id}", s.handleByGenre)
	get("/api/movies/most-searched", "/api/movies/most-searched", s.handleMostSearched)
	get("/api/movies/recently-added", "/api/movies/recently-added", s.handleRecentlyAdded)
	get("/api/movies/suggestions", "/api/movies/suggestions", s.handleSuggestions)
	get("/api/movies/similar", "/api/movies/similar", s.handleSimilar)
	get("/api/movies/{id}", "/api/movies/{id}", s.handleDetails)

	mux.Handle("GET /api/movies/search",
		metrics.Middleware("/api/movies/search", auth.OptionalAuth(http.HandlerFunc(s.handleSearch))))
	mux.Handle("GET /api/movies/personalized",
		metrics.Middleware("/api/movies/personalized", auth.OptionalAuth(http.HandlerFunc(s.handlePersonalized))))
	mux.Handle("POST /api/activity",
		metrics.Middleware("/api/activity", auth.OptionalAuth(http.HandlerFunc(s.handleTrackActivity))))

	requireGet := func(pattern, path string, h http.HandlerFunc) {
		mux.Handle("GET "+pattern, metrics.Middleware(path, auth.RequireAuth(h)))
	}
	requireGet("/api/users/watchlist", "/api/users/watchlist", s.handleWatchlist)
	mux.Handle("POST /api/users/watchlist",
		metrics.Middleware("/api/users/watchlist", auth.RequireAuth(http.HandlerFunc(s.handleWatchlistAdd))))
	mux.Handle("DELETE /api/users/watchlist/{movieId}",
		metrics.Middleware("/api/users/watchlist/{movieId}", auth.RequireAuth(http.HandlerFunc(s.handleWatchlistRemove))))

	requireGet("/api/users/history", "/api/users/history", s.handleHistory)
	mux.Handle("POST /api/users/history",
		metrics.Middleware("/api/users/history", auth.RequireAuth(http.HandlerFunc(s.handleHistoryUpsert))))

	requireGet("/api/users/searches", "/api/users/searches", s.handleUserSearches)
	mux.Handle("DELETE /api/users/searches/{id}",
		metrics.Middleware("/api/users/searches/{id}", auth.RequireAuth(http.HandlerFunc(s.handleDeleteSearch))))
	mux.Handle("DELETE /api/users/searches",
		metrics.Middleware("/api/users/searches", auth.RequireAuth(http.HandlerFunc(s.handleClearSearches))))
}
