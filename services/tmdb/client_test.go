// client_test.go — unit tests for the TMDB client: retry behavior,
// normalization boundary, and endpoint plumbing against httptest servers.
package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.base = srv.URL
	c.sleep = func(time.Duration) {}
	return c, srv
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	if _, err := NewClient("", RetryPolicy{}); err == nil {
		t.Fatal("expected error when no API key is configured")
	}
}

func TestPopularNormalizes(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/popular" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Error("api_key not forwarded")
		}
		w.Write([]byte(`{
			"page": 1, "total_pages": 3, "total_results": 60,
			"results": [
				{"id": 27205, "title": "Inception", "overview": "A thief enters dreams.",
				 "release_date": "2010-07-16", "poster_path": "/inc.jpg",
				 "vote_average": 8.4, "popularity": 91.5}
			]
		}`))
	}))

	list, err := c.Popular(context.Background(), 1)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if len(list.Movies) != 1 {
		t.Fatalf("got %d movies, want 1", len(list.Movies))
	}
	m := list.Movies[0]
	if m.ID != 27205 || m.Title != "Inception" {
		t.Errorf("unexpected movie %+v", m)
	}
	if m.PosterURL != imageBaseURL+"/inc.jpg" {
		t.Errorf("poster not normalized: %q", m.PosterURL)
	}
	if m.Rating != 8.4 {
		t.Errorf("rating = %v, want 8.4", m.Rating)
	}
	if list.Page.TotalPages != 3 {
		t.Errorf("page metadata lost: %+v", list.Page)
	}
}

func TestRetriesTransientErrors(t *testing.T) {
	var calls int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"page":1,"results":[]}`))
	}))

	if _, err := c.Popular(context.Background(), 1); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server called %d times, want 3", got)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Details(context.Background(), 99999999)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server called %d times, want 1 (4xx must not retry)", got)
	}
}

func TestDetailsIncludesSimilarAndTrailer(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("append_to_response"); got != "credits,videos,similar" {
			t.Errorf("append_to_response = %q", got)
		}
		w.Write([]byte(`{
			"id": 27205, "title": "Inception", "overview": "Dreams.",
			"genres": [{"id": 878, "name": "Science Fiction"}],
			"runtime": 148,
			"credits": {
				"cast": [{"id": 6193, "name": "Leonardo DiCaprio", "character": "Cobb"}],
				"crew": [{"id": 525, "name": "Christopher Nolan", "job": "Director"}]
			},
			"videos": {"results": [
				{"key": "clip1", "name": "Clip", "site": "YouTube", "type": "Clip"},
				{"key": "tr1", "name": "Official Trailer", "site": "YouTube", "type": "Trailer"}
			]},
			"similar": {"results": [
				{"id": 1124, "title": "The Prestige", "popularity": 40.1},
				{"id": 155, "title": "The Dark Knight", "popularity": 80.2}
			]}
		}`))
	}))

	d, err := c.Details(context.Background(), 27205)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if len(d.SimilarMovies) != 2 {
		t.Fatalf("similar movies = %d, want 2", len(d.SimilarMovies))
	}
	if d.Genres[0] != "Science Fiction" {
		t.Errorf("genres not flattened: %v", d.Genres)
	}
	if d.Director != "Christopher Nolan" {
		t.Errorf("director = %q", d.Director)
	}
	if d.Trailer == nil || d.Trailer.Key != "tr1" {
		t.Errorf("trailer should prefer YouTube Trailer entries, got %+v", d.Trailer)
	}
}

func TestTrendingWindowDefault(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trending/movie/week" {
			t.Errorf("path = %s, want /trending/movie/week", r.URL.Path)
		}
		w.Write([]byte(`{"page":1,"results":[{"id":1,"title":"A"}]}`))
	}))

	movies, err := c.Trending(context.Background(), "fortnight")
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(movies) != 1 {
		t.Errorf("got %d movies", len(movies))
	}
}
