// handlers.go — engagement and comment endpoints.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/services/activity"
)

// Storage is what the handlers need; *Store satisfies it.
type Storage interface {
	Engagement(ctx context.Context, movieID int) (*Engagement, error)
	ToggleLike(ctx context.Context, movieID int, userID string) (bool, *Engagement, error)
	AddShare(ctx context.Context, movieID int, userID string) (*Engagement, error)
	Comments(ctx context.Context, movieID, page, limit int) ([]Comment, int64, error)
	AddComment(ctx context.Context, c Comment) (*Comment, error)
	DeleteComment(ctx context.Context, commentID, userID string) error
}

// ActivityLog appends like/share/comment events.
type ActivityLog interface {
	Record(ctx context.Context, ev activity.Event) error
}

// Server is the social API service.
type Server struct {
	store  Storage
	events ActivityLog
	log    *slog.Logger
}

// NewServer wires the social API.
func NewServer(store Storage, events ActivityLog, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, events: events, log: log}
}

// RegisterRoutes mounts the social routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /api/movies/{id}/engagement",
		metrics.Middleware("/api/movies/{id}/engagement", http.HandlerFunc(s.handleEngagement)))
	mux.Handle("POST /api/movies/{id}/like",
		metrics.Middleware("/api/movies/{id}/like", auth.RequireAuth(http.HandlerFunc(s.handleLike))))
	mux.Handle("POST /api/movies/{id}/share",
		metrics.Middleware("/api/movies/{id}/share", auth.OptionalAuth(http.HandlerFunc(s.handleShare))))
	mux.Handle("GET /api/movies/{id}/comments",
		metrics.Middleware("/api/movies/{id}/comments", http.HandlerFunc(s.handleComments)))
	mux.Handle("POST /api/movies/{id}/comments",
		metrics.Middleware("/api/movies/{id}/comments", auth.RequireAuth(http.HandlerFunc(s.handleAddComment))))
	mux.Handle("DELETE /api/comments/{id}",
		metrics.Middleware("/api/comments/{id}", auth.RequireAuth(http.HandlerFunc(s.handleDeleteComment))))
}

func movieIDParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

func (s *Server) handleEngagement(w http.ResponseWriter, r *http.Request) {
	movieID, ok := movieIDParam(r)
	if !ok {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie id must be a positive integer")
		return
	}
	e, err := s.store.Engagement(r.Context(), movieID)
	if err != nil {
		s.log.Error("engagement read failed", "movie", movieID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load engagement")
		return
	}
	auth.WriteJSON(w, http.StatusOK, e)
}

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	movieID, ok := movieIDParam(r)
	if !ok {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie id must be a positive integer")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	liked, e, err := s.store.ToggleLike(r.Context(), movieID, userID)
	if err != nil {
		s.log.Error("like toggle failed", "movie", movieID, "user", userID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not update like")
		return
	}

	// Only a like, not an un-like, feeds the recommendation signal.
	if liked {
		s.recordEvent(r, userID, movieID, activity.TypeLike)
	}

	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"liked":  liked,
		"likes":  e.Likes,
		"shares": e.Shares,
	})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	movieID, ok := movieIDParam(r)
	if !ok {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie id must be a positive integer")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	e, err := s.store.AddShare(r.Context(), movieID, userID)
	if err != nil {
		s.log.Error("share failed", "movie", movieID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not record share")
		return
	}
	if userID != "" {
		s.recordEvent(r, userID, movieID, activity.TypeShare)
	}

	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"likes":  e.Likes,
		"shares": e.Shares,
	})
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	movieID, ok := movieIDParam(r)
	if !ok {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie id must be a positive integer")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	comments, total, err := s.store.Comments(r.Context(), movieID, page, limit)
	if err != nil {
		s.log.Error("comments read failed", "movie", movieID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not load comments")
		return
	}
	if comments == nil {
		comments = []Comment{}
	}
	auth.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"comments": comments,
		"total":    total,
	})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	movieID, ok := movieIDParam(r)
	if !ok {
		auth.WriteError(w, http.StatusBadRequest, "invalid_movie", "movie id must be a positive integer")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid_json", "valid JSON body required")
		return
	}
	if req.Text == "" || len(req.Text) > maxCommentLength {
		auth.WriteError(w, http.StatusBadRequest, "invalid_comment", "comment must be 1-1000 characters")
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	c := Comment{
		MovieID: movieID,
		UserID:  claims.Subject,
		Text:    req.Text,
	}
	if claims.Email != "" {
		c.UserName = claims.Email
	}

	created, err := s.store.AddComment(r.Context(), c)
	if err != nil {
		s.log.Error("comment insert failed", "movie", movieID, "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not add comment")
		return
	}
	s.recordEvent(r, claims.Subject, movieID, activity.TypeComment)

	auth.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	err := s.store.DeleteComment(r.Context(), r.PathValue("id"), userID)
	if errors.Is(err, ErrNotFound) {
		auth.WriteError(w, http.StatusNotFound, "not_found", "comment not found")
		return
	}
	if errors.Is(err, ErrForbidden) {
		auth.WriteError(w, http.StatusForbidden, "forbidden", "only the author can delete a comment")
		return
	}
	if err != nil {
		s.log.Error("comment delete failed", "err", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal_error", "could not delete comment")
		return
	}
	auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) recordEvent(r *http.Request, userID string, movieID int, kind string) {
	if s.events == nil {
		return
	}
	ev := activity.Event{UserID: userID, MovieID: movieID, ActivityType: kind}
	if err := s.events.Record(r.Context(), ev); err != nil {
		s.log.Warn("activity write failed", "err", err)
	}
}
