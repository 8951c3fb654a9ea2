// handlers_personal.go — personalized ranking, similarity, activity tracking.
package movies

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/services/activity"
	"github.com/cineverse/cineverse/services/reco"
)

// handlePersonalized serves the recommendation rail. Anonymous requests are
// allowed and get the anonymous tier.
func (s *Server) handlePersonalized(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	ranking, err := s.reco.PersonalizedRanking(r.Context(), userID)
	if err != nil {
		s.log.Error("ranking failed after all fallbacks", "user", userID, "err", err)
		auth.WriteError(w, http.StatusBadGateway, "upstream_error", "recommendations unavailable")
		return
	}

	metrics.RecoRequests.WithLabelValues(string(ranking.Tier)).Inc()
	if ranking.FailedSeeds > 0 {
		metrics.RecoDegraded.Inc()
		s.log.Warn("ranking served degraded", "user", userID, "failed_seeds", ranking.FailedSeeds)
	}

	movies := ranking.Movies
	if limit, _ := strconv.Atoi(r.URL.Query().Get("limit")); limit > 0 && limit < len(movies) {
		movies = movies[:limit]
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": movies,
		"tier":    ranking.Tier,
	})
}

// handleSimilar serves content-based similarity for ?title=...&top_k=N.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		auth.WriteError(w, http.StatusBadRequest, "missing_title", "title parameter is required")
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("top_k"))

	source, results, err := s.reco.Similar(r.Context(), title, topK)
	if errors.Is(err, reco.ErrNotFound) {
		auth.WriteError(w, http.StatusNotFound, "not_found", "no movie matches that title")
		return
	}
	if err != nil {
		s.log.Error("similarity query failed", "title", title, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "similarity query failed")
		return
	}

	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"movie":   source,
		"similar": results,
	})
}

// handleTrackActivity appends one interaction event.
func (s *Server) handleTrackActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MovieID      int     `json:"movie_id"`
		ActivityType string  `json:"activity_type"`
		SearchQuery  string  `json:"search_query"`
		Duration     int     `json:"duration"`
		Rating       float64 `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}

	ev := activity.Event{
		UserID:       auth.UserIDFromContext(r.Context()),
		MovieID:      req.MovieID,
		ActivityType: req.ActivityType,
		Metadata: activity.Metadata{
			SearchQuery: req.SearchQuery,
			Duration:    req.Duration,
			Rating:      req.Rating,
		},
	}
	if err := s.events.Record(r.Context(), ev); err != nil {
		if errors.Is(err, activity.ErrTypeRequired) || errors.Is(err, activity.ErrMovieIDRequired) {
			auth.WriteError(w, http.StatusBadRequest, "invalid_activity", err.Error())
			return
		}
		s.log.Error("activity write failed", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not record activity")
		return
	}
	auth.WriteJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}
