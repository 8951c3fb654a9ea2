// movies_test.go — handler tests over fake metadata and stores.
package movies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/services/activity"
	"github.com/cineverse/cineverse/services/reco"
	"github.com/cineverse/cineverse/services/tmdb"
)

type fakeMeta struct {
	popular    []tmdb.Movie
	trending   []tmdb.Movie
	nowPlaying []tmdb.Movie
	upcoming   []tmdb.Movie
	recent     []tmdb.Movie
	search     map[string][]tmdb.Movie
	details    map[int]*tmdb.MovieDetails
	genres     []tmdb.Genre

	popularErr  error
	trendingErr error
	recentErr   error
	nowErr      error
	upcomingErr error
	searchErr   error
}

func (f *fakeMeta) Popular(ctx context.Context, page int) (tmdb.MovieList, error) {
	if f.popularErr != nil {
		return tmdb.MovieList{}, f.popularErr
	}
	return tmdb.MovieList{Movies: f.popular}, nil
}
func (f *fakeMeta) Trending(ctx context.Context, window string) ([]tmdb.Movie, error) {
	if f.trendingErr != nil {
		return nil, f.trendingErr
	}
	return f.trending, nil
}
func (f *fakeMeta) TopRated(ctx context.Context, page int) (tmdb.MovieList, error) {
	return tmdb.MovieList{}, nil
}
func (f *fakeMeta) NowPlaying(ctx context.Context, page int) (tmdb.MovieList, error) {
	if f.nowErr != nil {
		return tmdb.MovieList{}, f.nowErr
	}
	return tmdb.MovieList{Movies: f.nowPlaying}, nil
}
func (f *fakeMeta) Upcoming(ctx context.Context, page int) (tmdb.MovieList, error) {
	if f.upcomingErr != nil {
		return tmdb.MovieList{}, f.upcomingErr
	}
	return tmdb.MovieList{Movies: f.upcoming}, nil
}
func (f *fakeMeta) ByGenre(ctx context.Context, genreID, page int) (tmdb.MovieList, error) {
	return tmdb.MovieList{}, nil
}
func (f *fakeMeta) RecentReleases(ctx context.Context, page int) (tmdb.MovieList, error) {
	if f.recentErr != nil {
		return tmdb.MovieList{}, f.recentErr
	}
	return tmdb.MovieList{Movies: f.recent}, nil
}
func (f *fakeMeta) Search(ctx context.Context, query string, page int) (tmdb.MovieList, error) {
	if f.searchErr != nil {
		return tmdb.MovieList{}, f.searchErr
	}
	return tmdb.MovieList{Movies: f.search[strings.ToLower(query)]}, nil
}
func (f *fakeMeta) Details(ctx context.Context, id int) (*tmdb.MovieDetails, error) {
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, &tmdb.StatusError{Code: http.StatusNotFound, Path: fmt.Sprintf("/movie/%d", id)}
}
func (f *fakeMeta) Genres(ctx context.Context) ([]tmdb.Genre, error) {
	return f.genres, nil
}

type fakeSearchLog struct {
	top      []activity.SearchRecord
	recorded []string
}

func (f *fakeSearchLog) RecordSearch(ctx context.Context, userID, query string, movieIDs []int) error {
	f.recorded = append(f.recorded, query)
	return nil
}
func (f *fakeSearchLog) TopSearches(ctx context.Context, limit int) ([]activity.SearchRecord, error) {
	return f.top, nil
}
func (f *fakeSearchLog) UserSearches(ctx context.Context, userID string, limit int) ([]activity.SearchRecord, error) {
	return nil, nil
}
func (f *fakeSearchLog) DeleteSearch(ctx context.Context, userID, id string) error { return nil }
func (f *fakeSearchLog) ClearSearches(ctx context.Context, userID string) error    { return nil }

type fakeActivityLog struct {
	events []activity.Event
}

func (f *fakeActivityLog) Record(ctx context.Context, ev activity.Event) error {
	if ev.ActivityType == "" {
		return activity.ErrTypeRequired
	}
	if ev.MovieID == 0 && activity.RequiresMovie(ev.ActivityType) {
		return activity.ErrMovieIDRequired
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeRecommender struct {
	ranking *reco.Ranking
	err     error
}

func (f *fakeRecommender) PersonalizedRanking(ctx context.Context, userID string) (*reco.Ranking, error) {
	return f.ranking, f.err
}
func (f *fakeRecommender) Similar(ctx context.Context, title string, topK int) (*tmdb.Movie, []reco.SimilarityResult, error) {
	return nil, nil, reco.ErrNotFound
}

type fakeCatalogReader struct {
	recent []tmdb.Movie
}

func (f *fakeCatalogReader) Recent(ctx context.Context, limit int) ([]tmdb.Movie, error) {
	return f.recent, nil
}

type memWatchlist struct {
	items map[string][]WatchlistItem
}

func (m *memWatchlist) List(ctx context.Context, userID string) ([]WatchlistItem, error) {
	return m.items[userID], nil
}
func (m *memWatchlist) Add(ctx context.Context, userID string, item WatchlistItem) error {
	if m.items == nil {
		m.items = map[string][]WatchlistItem{}
	}
	item.UserID = userID
	for i, existing := range m.items[userID] {
		if existing.MovieID == item.MovieID {
			m.items[userID][i] = item
			return nil
		}
	}
	m.items[userID] = append(m.items[userID], item)
	return nil
}
func (m *memWatchlist) Remove(ctx context.Context, userID string, movieID int) error {
	list := m.items[userID]
	for i, existing := range list {
		if existing.MovieID == movieID {
			m.items[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

type memHistory struct {
	items []HistoryItem
}

func (m *memHistory) List(ctx context.Context, userID string, limit int) ([]HistoryItem, error) {
	return m.items, nil
}
func (m *memHistory) Upsert(ctx context.Context, userID string, item HistoryItem) error {
	item.UserID = userID
	m.items = append(m.items, item)
	return nil
}

func newTestServer(meta *fakeMeta) (*Server, *http.ServeMux, *fakeSearchLog, *fakeActivityLog) {
	searches := &fakeSearchLog{}
	events := &fakeActivityLog{}
	s := NewServer(meta, &fakeRecommender{}, events, searches,
		&fakeCatalogReader{}, &memWatchlist{}, &memHistory{}, nil)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s, mux, searches, events
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateAccessToken(userID, userID+"@example.com", true)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return "Bearer " + tok
}

func TestPopular(t *testing.T) {
	meta := &fakeMeta{popular: []tmdb.Movie{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}}
	_, mux, _, _ := newTestServer(meta)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/popular", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp tmdb.MovieList
	decodeBody(t, w, &resp)
	if len(resp.Movies) != 2 {
		t.Errorf("got %d movies, want 2", len(resp.Movies))
	}
}

func TestPopularUpstreamFailure(t *testing.T) {
	meta := &fakeMeta{popularErr: errors.New("down")}
	_, mux, _, _ := newTestServer(meta)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/popular", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestDetailsNotFound(t *testing.T) {
	_, mux, _, _ := newTestServer(&fakeMeta{})

	req := httptest.NewRequest(http.MethodGet, "/api/movies/99999", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestByGenreRejectsBadID(t *testing.T) {
	_, mux, _, _ := newTestServer(&fakeMeta{})

	req := httptest.NewRequest(http.MethodGet, "/api/movies/genre/abc", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSearchRecordsHistory(t *testing.T) {
	meta := &fakeMeta{search: map[string][]tmdb.Movie{
		"dune": {{ID: 438631, Title: "Dune"}},
	}}
	_, mux, searches, _ := newTestServer(meta)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/search?query=Dune", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(searches.recorded) != 1 || searches.recorded[0] != "Dune" {
		t.Errorf("search not recorded, got %v", searches.recorded)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	_, mux, _, _ := newTestServer(&fakeMeta{})

	req := httptest.NewRequest(http.MethodGet, "/api/movies/search", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSuggestionsCapped(t *testing.T) {
	var many []tmdb.Movie
	for i := 1; i <= 15; i++ {
		many = append(many, tmdb.Movie{ID: i, Title: fmt.Sprintf("Movie %d", i), ReleaseDate: "2024-01-01"})
	}
	meta := &fakeMeta{search: map[string][]tmdb.Movie{"mov": many}}
	_, mux, _, _ := newTestServer(meta)

	req := httptest.NewRequest(http.MethodGet, "/api/movies/suggestions?query=mov", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	var resp struct {
		Suggestions []suggestion `json:"suggestions"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Suggestions) != 8 {
		t.Errorf("got %d suggestions, want 8", len(resp.Suggestions))
	}
	if resp.Suggestions[0].Year != "2024" {
		t.Errorf("year = %q, want 2024", resp.Suggestions[0].Year)
	}
}

func TestTrackActivityValidation(t *testing.T) {
	_, mux, _, events := newTestServer(&fakeMeta{})

	body := strings.NewReader(`{"activity_type":"play"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/activity", body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for play without movie_id", w.Code)
	}
	if len(events.events) != 0 {
		t.Error("invalid event should not be recorded")
	}
}

func TestTrackActivityPageViewWithoutMovie(t *testing.T) {
	_, mux, _, events := newTestServer(&fakeMeta{})

	body := strings.NewReader(`{"activity_type":"page_view"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/activity", body)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if len(events.events) != 1 {
		t.Fatalf("got %d events, want 1", len(events.events))
	}
}

func TestWatchlistRequiresAuth(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	_, mux, _, _ := newTestServer(&fakeMeta{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/watchlist", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestWatchlistRoundTrip(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	_, mux, _, _ := newTestServer(&fakeMeta{})
	token := bearerToken(t, "user-1")

	add := httptest.NewRequest(http.MethodPost, "/api/users/watchlist",
		strings.NewReader(`{"movie_id": 603, "title": "The Matrix"}`))
	add.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, add)
	if w.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want 201", w.Code)
	}

	list := httptest.NewRequest(http.MethodGet, "/api/users/watchlist", nil)
	list.Header.Set("Authorization", token)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, list)
	var resp struct {
		Watchlist []WatchlistItem `json:"watchlist"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Watchlist) != 1 || resp.Watchlist[0].MovieID != 603 {
		t.Fatalf("watchlist = %+v, want one entry for 603", resp.Watchlist)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/users/watchlist/603", nil)
	del.Header.Set("Authorization", token)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, del)
	if w.Code != http.StatusOK {
		t.Fatalf("remove status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	list2 := httptest.NewRequest(http.MethodGet, "/api/users/watchlist", nil)
	list2.Header.Set("Authorization", token)
	mux.ServeHTTP(w, list2)
	resp.Watchlist = nil
	decodeBody(t, w, &resp)
	if len(resp.Watchlist) != 0 {
		t.Errorf("watchlist after remove = %+v, want empty", resp.Watchlist)
	}
}

func TestHistoryUpsertRecordsPlayEvent(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	_, mux, _, events := newTestServer(&fakeMeta{})
	token := bearerToken(t, "user-7")

	req := httptest.NewRequest(http.MethodPost, "/api/users/history",
		strings.NewReader(`{"movie_id": 27205, "progress": 1200, "duration": 8880}`))
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(events.events) != 1 {
		t.Fatalf("got %d events, want 1 play event", len(events.events))
	}
	ev := events.events[0]
	if ev.ActivityType != activity.TypePlay || ev.MovieID != 27205 || ev.UserID != "user-7" {
		t.Errorf("unexpected event %+v", ev)
	}
}
