// aggregate.go — composite discovery rails built from several sources.
//
// Both rails degrade instead of failing: most-searched backfills from
// trending and popular when search history resolves short, recently-added
// merges recent-releases, now-playing and upcoming, tolerating per-source
// outages.
package movies

import (
	"context"
	"net/http"
	"sort"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/services/tmdb"
)

const railSize = 20

// handleMostSearched returns the movies behind the site's top search queries,
// popularity-sorted.
func (s *Server) handleMostSearched(w http.ResponseWriter, r *http.Request) {
	movies, source, err := s.buildMostSearched(r.Context())
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": movies,
		"source":  source,
	})
}

// maxSearchedIDs caps how many distinct searched movies feed the rail before
// trending and popular backfill the rest.
const maxSearchedIDs = 15

func (s *Server) buildMostSearched(ctx context.Context) ([]tmdb.Movie, string, error) {
	var ids []int
	if s.searches != nil {
		records, err := s.searches.TopSearches(ctx, 30)
		if err != nil {
			s.log.Warn("top searches query failed", "err", err)
		}
		seen := make(map[int]bool)
		for _, rec := range records {
			for _, id := range rec.MovieIDs {
				if id == 0 || seen[id] {
					continue
				}
				seen[id] = true
				ids = append(ids, id)
				if len(ids) >= maxSearchedIDs {
					break
				}
			}
			if len(ids) >= maxSearchedIDs {
				break
			}
		}
	}

	// One fan-out resolves every searched id and loads the backfill material.
	// A failed id resolution just drops that movie.
	results := make([]*tmdb.MovieDetails, len(ids))
	var trending, popular []tmdb.Movie
	var trendErr, popErr error
	done := make(chan struct{}, len(ids)+2)
	for i, id := range ids {
		go func(i, id int) {
			defer func() { done <- struct{}{} }()
			if d, err := s.meta.Details(ctx, id); err == nil {
				results[i] = d
			}
		}(i, id)
	}
	go func() {
		defer func() { done <- struct{}{} }()
		trending, trendErr = s.meta.Trending(ctx, "week")
	}()
	go func() {
		defer func() { done <- struct{}{} }()
		var list tmdb.MovieList
		if list, popErr = s.meta.Popular(ctx, 1); popErr == nil {
			popular = list.Movies
		}
	}()
	for i := 0; i < len(ids)+2; i++ {
		<-done
	}

	present := make(map[int]bool)
	var movies []tmdb.Movie
	for _, d := range results {
		if d != nil && !present[d.Movie.ID] {
			present[d.Movie.ID] = true
			movies = append(movies, d.Movie)
		}
	}
	resolved := len(movies)

	// Short of 15 resolved movies, top the rail up to 20 from trending, then
	// popular, skipping anything already present. With nothing resolved this
	// degenerates into the trending fallback tier.
	if resolved < maxSearchedIDs {
		for _, m := range append(trending, popular...) {
			if len(movies) >= railSize {
				break
			}
			if present[m.ID] {
				continue
			}
			present[m.ID] = true
			movies = append(movies, m)
		}
	}

	if len(movies) == 0 && trendErr != nil && popErr != nil {
		return nil, "", trendErr
	}

	sort.Slice(movies, func(a, b int) bool {
		if movies[a].Popularity != movies[b].Popularity {
			return movies[a].Popularity > movies[b].Popularity
		}
		return movies[a].ID < movies[b].ID
	})
	if len(movies) > railSize {
		movies = movies[:railSize]
	}
	source := "search_history"
	if resolved == 0 {
		source = "trending_fallback"
	}
	return movies, source, nil
}

// handleRecentlyAdded merges the local catalog's newest titles with TMDB's
// recent releases, newest first.
func (s *Server) handleRecentlyAdded(w http.ResponseWriter, r *http.Request) {
	movies, source, err := s.buildRecentlyAdded(r.Context())
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": movies,
		"source":  source,
	})
}

func (s *Server) buildRecentlyAdded(ctx context.Context) ([]tmdb.Movie, string, error) {
	// Later entries win on duplicate ids, so upstream data refreshes any
	// stale catalog copy of the same movie.
	byID := make(map[int]tmdb.Movie)
	var order []int
	add := func(movies []tmdb.Movie) {
		for _, m := range movies {
			if m.ReleaseDate == "" {
				continue
			}
			if _, ok := byID[m.ID]; !ok {
				order = append(order, m.ID)
			}
			byID[m.ID] = m
		}
	}

	if s.catalog != nil {
		if local, err := s.catalog.Recent(ctx, railSize); err == nil {
			add(local)
		} else {
			s.log.Warn("catalog recent query failed", "err", err)
		}
	}

	failed := 0
	fetch := func(name string, f func() (tmdb.MovieList, error)) {
		list, err := f()
		if err != nil {
			failed++
			s.log.Warn("recently-added source failed", "source", name, "err", err)
			return
		}
		add(list.Movies)
	}
	fetch("recent_releases", func() (tmdb.MovieList, error) { return s.meta.RecentReleases(ctx, 1) })
	fetch("now_playing", func() (tmdb.MovieList, error) { return s.meta.NowPlaying(ctx, 1) })
	fetch("upcoming", func() (tmdb.MovieList, error) { return s.meta.Upcoming(ctx, 1) })

	source := "recent_releases"
	switch {
	case failed == 3 && len(byID) == 0:
		return s.popularRail(ctx, "popular_fallback")
	case failed == 3:
		source = "catalog"
	case failed > 0:
		source = "degraded"
	}

	movies := make([]tmdb.Movie, 0, len(order))
	for _, id := range order {
		movies = append(movies, byID[id])
	}
	sort.Slice(movies, func(a, b int) bool {
		if movies[a].ReleaseDate != movies[b].ReleaseDate {
			return movies[a].ReleaseDate > movies[b].ReleaseDate
		}
		return movies[a].ID < movies[b].ID
	})
	if len(movies) > railSize {
		movies = movies[:railSize]
	}
	return movies, source, nil
}

// popularRail is the shared last-resort source for both aggregation rails.
func (s *Server) popularRail(ctx context.Context, source string) ([]tmdb.Movie, string, error) {
	list, err := s.meta.Popular(ctx, 1)
	if err != nil {
		return nil, "", err
	}
	movies := list.Movies
	if len(movies) > railSize {
		movies = movies[:railSize]
	}
	return movies, source, nil
}
