// social_test.go — like toggling, shares, and comment authorization.
package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cineverse/cineverse/internal/auth"
	"github.com/cineverse/cineverse/services/activity"
)

// memStore is an in-memory Storage implementation mirroring the Mongo
// semantics the handlers rely on.
type memStore struct {
	engagement map[int]*Engagement
	comments   []Comment
	nextID     int
}

func newMemStore() *memStore {
	return &memStore{engagement: map[int]*Engagement{}}
}

func (m *memStore) get(movieID int) *Engagement {
	if e, ok := m.engagement[movieID]; ok {
		return e
	}
	e := &Engagement{MovieID: movieID}
	m.engagement[movieID] = e
	return e
}

func (m *memStore) Engagement(ctx context.Context, movieID int) (*Engagement, error) {
	return m.get(movieID), nil
}

func (m *memStore) ToggleLike(ctx context.Context, movieID int, userID string) (bool, *Engagement, error) {
	e := m.get(movieID)
	for i, u := range e.LikedBy {
		if u == userID {
			e.LikedBy = append(e.LikedBy[:i], e.LikedBy[i+1:]...)
			e.Likes--
			return false, e, nil
		}
	}
	e.LikedBy = append(e.LikedBy, userID)
	e.Likes++
	return true, e, nil
}

func (m *memStore) AddShare(ctx context.Context, movieID int, userID string) (*Engagement, error) {
	e := m.get(movieID)
	e.Shares++
	if userID != "" {
		found := false
		for _, u := range e.SharedBy {
			if u == userID {
				found = true
				break
			}
		}
		if !found {
			e.SharedBy = append(e.SharedBy, userID)
		}
	}
	return e, nil
}

func (m *memStore) Comments(ctx context.Context, movieID, page, limit int) ([]Comment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	var all []Comment
	for i := len(m.comments) - 1; i >= 0; i-- {
		if m.comments[i].MovieID == movieID {
			all = append(all, m.comments[i])
		}
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *memStore) AddComment(ctx context.Context, c Comment) (*Comment, error) {
	m.nextID++
	c.CreatedAt = time.Now()
	m.comments = append(m.comments, c)
	return &c, nil
}

func (m *memStore) DeleteComment(ctx context.Context, commentID, userID string) error {
	for i, c := range m.comments {
		if c.Text == commentID { // tests key deletes by text for simplicity
			if c.UserID != userID {
				return ErrForbidden
			}
			m.comments = append(m.comments[:i], m.comments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

type nullActivity struct{ events []activity.Event }

func (n *nullActivity) Record(ctx context.Context, ev activity.Event) error {
	n.events = append(n.events, ev)
	return nil
}

func newSocialMux(store Storage, acts ActivityLog) *http.ServeMux {
	s := NewServer(store, acts, nil)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

func authedRequest(t *testing.T, userID, method, target, body string) *http.Request {
	t.Helper()
	tok, err := auth.GenerateAccessToken(userID, userID+"@example.com", true)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func TestLikeToggles(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	store := newMemStore()
	acts := &nullActivity{}
	mux := newSocialMux(store, acts)

	like := func() map[string]interface{} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, authedRequest(t, "user-1", http.MethodPost, "/api/movies/603/like", ""))
		if w.Code != http.StatusOK {
			t.Fatalf("like status = %d", w.Code)
		}
		var resp map[string]interface{}
		json.NewDecoder(w.Body).Decode(&resp)
		return resp
	}

	first := like()
	if first["liked"] != true || first["likes"] != float64(1) {
		t.Errorf("first like = %v, want liked with count 1", first)
	}
	second := like()
	if second["liked"] != false || second["likes"] != float64(0) {
		t.Errorf("second like = %v, want un-liked with count 0", second)
	}

	// Only the like, not the un-like, produces an activity event.
	if len(acts.events) != 1 || acts.events[0].ActivityType != activity.TypeLike {
		t.Errorf("events = %+v, want exactly one like event", acts.events)
	}
}

func TestShareAlwaysIncrements(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	store := newMemStore()
	mux := newSocialMux(store, &nullActivity{})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, authedRequest(t, "user-1", http.MethodPost, "/api/movies/603/share", ""))
		if w.Code != http.StatusOK {
			t.Fatalf("share status = %d", w.Code)
		}
	}

	e := store.get(603)
	if e.Shares != 3 {
		t.Errorf("shares = %d, want 3 (repeat shares count)", e.Shares)
	}
	if len(e.SharedBy) != 1 {
		t.Errorf("sharedBy = %v, want one unique user", e.SharedBy)
	}
}

func TestAnonymousShareAllowed(t *testing.T) {
	store := newMemStore()
	acts := &nullActivity{}
	mux := newSocialMux(store, acts)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/movies/603/share", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous share status = %d", w.Code)
	}
	if store.get(603).Shares != 1 {
		t.Error("anonymous share did not count")
	}
	if len(acts.events) != 0 {
		t.Error("anonymous share should not produce an activity event")
	}
}

func TestCommentValidation(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	mux := newSocialMux(newMemStore(), &nullActivity{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, "user-1", http.MethodPost, "/api/movies/603/comments",
		`{"text": ""}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty comment: status = %d, want 400", w.Code)
	}

	long := strings.Repeat("x", maxCommentLength+1)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, "user-1", http.MethodPost, "/api/movies/603/comments",
		fmt.Sprintf(`{"text": %q}`, long)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("overlong comment: status = %d, want 400", w.Code)
	}
}

func TestCommentAddAndPaginate(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	store := newMemStore()
	mux := newSocialMux(store, &nullActivity{})

	for i := 1; i <= 5; i++ {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, authedRequest(t, "user-1", http.MethodPost, "/api/movies/603/comments",
			fmt.Sprintf(`{"text": "comment %d"}`, i)))
		if w.Code != http.StatusCreated {
			t.Fatalf("add comment %d: status = %d", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/movies/603/comments?page=1&limit=2", nil))
	var resp struct {
		Comments []Comment `json:"comments"`
		Total    int64     `json:"total"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Total != 5 {
		t.Errorf("total = %d, want 5", resp.Total)
	}
	if len(resp.Comments) != 2 {
		t.Fatalf("page size = %d, want 2", len(resp.Comments))
	}
	if resp.Comments[0].Text != "comment 5" {
		t.Errorf("newest first: got %q, want comment 5", resp.Comments[0].Text)
	}
}

func TestDeleteCommentAuthorOnly(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "test-secret")
	store := newMemStore()
	store.comments = append(store.comments, Comment{MovieID: 603, UserID: "user-1", Text: "mine"})
	mux := newSocialMux(store, &nullActivity{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, "user-2", http.MethodDelete, "/api/comments/mine", ""))
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status = %d, want 403", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, "user-1", http.MethodDelete, "/api/comments/mine", ""))
	if w.Code != http.StatusOK {
		t.Fatalf("author delete: status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, authedRequest(t, "user-1", http.MethodDelete, "/api/comments/mine", ""))
	if w.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: status = %d, want 404", w.Code)
	}
}
