// handlers_browse.go — read-only catalog browsing backed by TMDB.
package movies

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/services/activity"
	"github.com/cineverse/cineverse/services/tmdb"
)

func pageParam(r *http.Request) int {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	return page
}

// writeUpstream maps TMDB client failures onto the error envelope. A 404 from
// the upstream is the caller's problem; everything else is a gateway failure.
func (s *Server) writeUpstream(w http.ResponseWriter, r *http.Request, err error) {
	var se *tmdb.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		auth.WriteError(w, http.StatusNotFound, "not_found", "movie not found")
		return
	}
	s.log.Error("metadata upstream failed", "path", r.URL.Path, "err", err)
	auth.WriteError(w, http.StatusBadGateway, "upstream_error", "metadata service unavailable")
}

func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	list, err := s.meta.Popular(r.Context(), pageParam(r))
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	movies, err := s.meta.Trending(r.Context(), r.URL.Query().Get("window"))
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"results": movies})
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	list, err := s.meta.TopRated(r.Context(), pageParam(r))
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	list, err := s.meta.NowPlaying(r.Context(), pageParam(r))
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	list, err := s.meta.Upcoming(r.Context(), pageParam(r))
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.meta.Genres(r.Context())
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"genres": genres})
}

func (s *Server) handleByGenre(w http.ResponseWriter, r *http.Request) {
	genreID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || genreID <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_genre", "genre id must be a positive integer")
		return
	}
	list, err := s.meta.ByGenre(r.Context(), genreID, pageParam(r))
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_id", "movie id must be a positive integer")
		return
	}
	details, err := s.meta.Details(r.Context(), id)
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, details)
}

// handleSearch proxies the title search and records it. Tracking is
// best-effort: a failed write never fails the search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		auth.WriteError(w, http.StatusBadRequest, "missing_query", "query parameter is required")
		return
	}

	list, err := s.meta.Search(r.Context(), query, pageParam(r))
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	ids := make([]int, 0, len(list.Movies))
	for _, m := range list.Movies {
		ids = append(ids, m.ID)
	}
	if s.searches != nil {
		if err := s.searches.RecordSearch(r.Context(), userID, query, ids); err != nil {
			s.log.Warn("search history write failed", "err", err)
		}
	}
	if s.events != nil && userID != "" && len(list.Movies) > 0 {
		ev := activity.Event{
			UserID:       userID,
			MovieID:      list.Movies[0].ID,
			ActivityType: activity.TypeSearch,
			Metadata:     activity.Metadata{SearchQuery: query},
		}
		if err := s.events.Record(r.Context(), ev); err != nil {
			s.log.Warn("activity write failed", "err", err)
		}
	}

	auth.WriteJSON(w, http.StatusOK, list)
}

// handleSuggestions returns lightweight typeahead entries for a partial query.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": []suggestion{}})
		return
	}

	list, err := s.meta.Search(r.Context(), query, 1)
	if err != nil {
		s.writeUpstream(w, r, err)
		return
	}

	const maxSuggestions = 8
	suggestions := make([]suggestion, 0, maxSuggestions)
	for _, m := range list.Movies {
		if len(suggestions) >= maxSuggestions {
			break
		}
		suggestions = append(suggestions, suggestion{
			ID:        m.ID,
			Title:     m.Title,
			Year:      releaseYear(m.ReleaseDate),
			PosterURL: m.PosterURL,
		})
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

type suggestion struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      string `json:"year,omitempty"`
	PosterURL string `json:"poster_url,omitempty"`
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
