// handlers_library.go — authenticated watchlist, history and search endpoints.
package movies

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/services/activity"
)

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	items, err := s.watchlist.List(r.Context(), userID)
	if err != nil {
		s.log.Error("watchlist read failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load watchlist")
		return
	}
	if items == nil {
		items = []WatchlistItem{}
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"watchlist": items})
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MovieID   int    `json:"movie_id"`
		Title     string `json:"title"`
		PosterURL string `json:"poster_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}
	if req.MovieID <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie_id must be a positive integer")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	item := WatchlistItem{MovieID: req.MovieID, Title: req.Title, PosterURL: req.PosterURL}
	if err := s.watchlist.Add(r.Context(), userID, item); err != nil {
		s.log.Error("watchlist add failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not update watchlist")
		return
	}
	auth.WriteJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	movieID, err := strconv.Atoi(r.PathValue("movieId"))
	if err != nil || movieID <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie id must be a positive integer")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if err := s.watchlist.Remove(r.Context(), userID, movieID); err != nil {
		s.log.Error("watchlist remove failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not update watchlist")
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := s.history.List(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("history read failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load history")
		return
	}
	if items == nil {
		items = []HistoryItem{}
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"history": items})
}

// handleHistoryUpsert records viewing progress and appends a play event so
// the recommendation engine sees it.
func (s *Server) handleHistoryUpsert(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MovieID  int    `json:"movie_id"`
		Title    string `json:"title"`
		Progress int    `json:"progress"`
		Duration int    `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}
	if req.MovieID <= 0 {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie_id must be a positive integer")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	item := HistoryItem{MovieID: req.MovieID, Title: req.Title, Progress: req.Progress, Duration: req.Duration}
	if err := s.history.Upsert(r.Context(), userID, item); err != nil {
		s.log.Error("history write failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not update history")
		return
	}

	if s.events != nil {
		ev := activity.Event{
			UserID:       userID,
			MovieID:      req.MovieID,
			ActivityType: activity.TypePlay,
			Metadata:     activity.Metadata{Duration: req.Duration},
		}
		if err := s.events.Record(r.Context(), ev); err != nil {
			s.log.Warn("activity write failed", "err", err)
		}
	}

	auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleUserSearches(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := s.searches.UserSearches(r.Context(), userID, limit)
	if err != nil {
		s.log.Error("search history read failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load search history")
		return
	}
	if records == nil {
		records = []activity.SearchRecord{}
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{"searches": records})
}

func (s *Server) handleDeleteSearch(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := s.searches.DeleteSearch(r.Context(), userID, r.PathValue("id")); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_id", "could not delete search entry")
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleClearSearches(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := s.searches.ClearSearches(r.Context(), userID); err != nil {
		s.log.Error("search history clear failed", "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not clear search history")
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
