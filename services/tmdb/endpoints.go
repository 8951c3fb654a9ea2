// endpoints.go — typed wrappers for the TMDB endpoints CineVerse consumes.
package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Popular returns the popular-movies list for the given page.
func (c *Client) Popular(ctx context.Context, page int) (MovieList, error) {
	return c.list(ctx, "/movie/popular", page, nil)
}

// Trending returns the trending movies for a time window ("day" or "week").
// An empty window defaults to "week".
func (c *Client) Trending(ctx context.Context, window string) ([]Movie, error) {
	if window != "day" {
		window = "week"
	}
	list, err := c.list(ctx, "/trending/movie/"+window, 1, nil)
	if err != nil {
		return nil, err
	}
	return list.Movies, nil
}

// TopRated returns the top-rated movies list for the given page.
func (c *Client) TopRated(ctx context.Context, page int) (MovieList, error) {
	return c.list(ctx, "/movie/top_rated", page, nil)
}

// NowPlaying returns movies currently in theaters.
func (c *Client) NowPlaying(ctx context.Context, page int) (MovieList, error) {
	return c.list(ctx, "/movie/now_playing", page, nil)
}

// Upcoming returns upcoming theatrical releases.
func (c *Client) Upcoming(ctx context.Context, page int) (MovieList, error) {
	return c.list(ctx, "/movie/upcoming", page, nil)
}

// ByGenre returns movies for one TMDB genre id, popularity-sorted.
func (c *Client) ByGenre(ctx context.Context, genreID, page int) (MovieList, error) {
	params := url.Values{}
	params.Set("with_genres", strconv.Itoa(genreID))
	params.Set("sort_by", "popularity.desc")
	return c.list(ctx, "/discover/movie", page, params)
}

// RecentReleases returns released movies sorted newest-first, filtered to
// titles with at least 50 votes so unreleased placeholder entries drop out.
func (c *Client) RecentReleases(ctx context.Context, page int) (MovieList, error) {
	params := url.Values{}
	params.Set("sort_by", "release_date.desc")
	params.Set("release_date.lte", time.Now().UTC().Format("2006-01-02"))
	params.Set("vote_count.gte", "50")
	return c.list(ctx, "/discover/movie", page, params)
}

// Search performs a title search.
func (c *Client) Search(ctx context.Context, query string, page int) (MovieList, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	return c.list(ctx, "/search/movie", page, params)
}

// Details returns full movie details including credits, trailer, and the
// similar-movies sub-list (one request via append_to_response).
func (c *Client) Details(ctx context.Context, id int) (*MovieDetails, error) {
	params := url.Values{}
	params.Set("append_to_response", "credits,videos,similar")

	var raw rawDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), params, &raw); err != nil {
		return nil, err
	}
	return normalizeDetails(raw), nil
}

// Genres returns the TMDB movie genre catalog.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var raw struct {
		Genres []Genre `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", nil, &raw); err != nil {
		return nil, err
	}
	return raw.Genres, nil
}

func (c *Client) list(ctx context.Context, path string, page int, params url.Values) (MovieList, error) {
	if params == nil {
		params = url.Values{}
	}
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))

	var raw rawMovieList
	if err := c.get(ctx, path, params, &raw); err != nil {
		return MovieList{}, err
	}
	return normalizeList(raw), nil
}
