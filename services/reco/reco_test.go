// reco_test.go — ranking fallback chain and seed expansion behavior.
package reco

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cineverse/cineverse/services/activity"
	"github.com/cineverse/cineverse/services/tmdb"
)

// fakeMeta is a scriptable MetadataSource.
type fakeMeta struct {
	popular     []tmdb.Movie
	trending    []tmdb.Movie
	topRated    []tmdb.Movie
	details     map[int]*tmdb.MovieDetails
	failDetails map[int]bool

	popularErr  error
	trendingErr error
	topRatedErr error

	detailsCalls int
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
	if f.topRatedErr != nil {
		return tmdb.MovieList{}, f.topRatedErr
	}
	return tmdb.MovieList{Movies: f.topRated}, nil
}

func (f *fakeMeta) Details(ctx context.Context, id int) (*tmdb.MovieDetails, error) {
	f.detailsCalls++
	if f.failDetails[id] {
		return nil, errors.New("details unavailable")
	}
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return &tmdb.MovieDetails{Movie: tmdb.Movie{ID: id}}, nil
}

// fakeActivity returns a fixed event list.
type fakeActivity struct {
	events []activity.Event
	err    error
}

func (f *fakeActivity) QueryRecent(ctx context.Context, userID string, limit int) ([]activity.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

// fakeCatalog serves similarity tests from an in-memory slice.
type fakeCatalog struct {
	movies []tmdb.Movie
}

func (f *fakeCatalog) FindByTitle(ctx context.Context, title string) (*tmdb.Movie, error) {
	for _, m := range f.movies {
		if containsFold(m.Title, title) {
			cp := m
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeCatalog) AllExcept(ctx context.Context, excludeID int) ([]tmdb.Movie, error) {
	var out []tmdb.Movie
	for _, m := range f.movies {
		if m.ID != excludeID {
			out = append(out, m)
		}
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	h, n := []rune(haystack), []rune(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		match := true
		for j := range n {
			a, b := h[i+j], n[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func movieRange(start, count int) []tmdb.Movie {
	out := make([]tmdb.Movie, count)
	for i := range out {
		out[i] = tmdb.Movie{ID: start + i, Title: fmt.Sprintf("Movie %d", start+i)}
	}
	return out
}

func playEvents(movieIDs ...int) []activity.Event {
	now := time.Now()
	out := make([]activity.Event, len(movieIDs))
	for i, id := range movieIDs {
		out[i] = activity.Event{
			MovieID:      id,
			ActivityType: activity.TypePlay,
			Timestamp:    now.Add(-time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestAnonymousBlend(t *testing.T) {
	meta := &fakeMeta{
		popular:  movieRange(100, 20),
		trending: movieRange(200, 20),
	}
	e := NewEngine(meta, &fakeActivity{}, &fakeCatalog{})

	r, err := e.PersonalizedRanking(context.Background(), "")
	if err != nil {
		t.Fatalf("PersonalizedRanking: %v", err)
	}
	if r.Tier != TierAnonymous {
		t.Fatalf("tier = %q, want %q", r.Tier, TierAnonymous)
	}
	if len(r.Movies) != 20 {
		t.Fatalf("got %d movies, want 20", len(r.Movies))
	}
	if r.Movies[0].ID != 100 || r.Movies[9].ID != 109 {
		t.Errorf("first 10 should be popular, got %d..%d", r.Movies[0].ID, r.Movies[9].ID)
	}
	if r.Movies[10].ID != 200 || r.Movies[19].ID != 209 {
		t.Errorf("last 10 should be trending, got %d..%d", r.Movies[10].ID, r.Movies[19].ID)
	}
}

func TestColdStartBlend(t *testing.T) {
	meta := &fakeMeta{
		popular:  movieRange(100, 20),
		trending: movieRange(200, 20),
		topRated: movieRange(300, 20),
	}
	e := NewEngine(meta, &fakeActivity{}, &fakeCatalog{})

	r, err := e.PersonalizedRanking(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PersonalizedRanking: %v", err)
	}
	if r.Tier != TierColdStart {
		t.Fatalf("tier = %q, want %q", r.Tier, TierColdStart)
	}
	if len(r.Movies) != 20 {
		t.Fatalf("got %d movies, want 20 (7+7+6)", len(r.Movies))
	}
	if r.Movies[6].ID != 106 {
		t.Errorf("popular slice wrong, movie[6] = %d", r.Movies[6].ID)
	}
	if r.Movies[7].ID != 200 || r.Movies[13].ID != 206 {
		t.Errorf("trending slice wrong, got %d..%d", r.Movies[7].ID, r.Movies[13].ID)
	}
	if r.Movies[14].ID != 300 || r.Movies[19].ID != 305 {
		t.Errorf("top-rated slice wrong, got %d..%d", r.Movies[14].ID, r.Movies[19].ID)
	}
}

func TestExclusionOfRecentMovies(t *testing.T) {
	// Three recent play events. Their movies may appear in the expansion
	// candidates but must never appear in the result.
	meta := &fakeMeta{
		trending: movieRange(400, 20),
		details: map[int]*tmdb.MovieDetails{
			5: {Movie: tmdb.Movie{ID: 5}, SimilarMovies: []tmdb.Movie{{ID: 7}, {ID: 9}, {ID: 41}}},
			7: {Movie: tmdb.Movie{ID: 7}, SimilarMovies: []tmdb.Movie{{ID: 5}, {ID: 42}}},
			9: {Movie: tmdb.Movie{ID: 9}, SimilarMovies: []tmdb.Movie{{ID: 43}}},
		},
	}
	act := &fakeActivity{events: playEvents(5, 7, 9)}
	e := NewEngine(meta, act, &fakeCatalog{})

	r, err := e.PersonalizedRanking(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PersonalizedRanking: %v", err)
	}
	if r.Tier != TierPersonalized {
		t.Fatalf("tier = %q, want %q", r.Tier, TierPersonalized)
	}
	for _, m := range r.Movies {
		if m.ID == 5 || m.ID == 7 || m.ID == 9 {
			t.Errorf("recently played movie %d leaked into the ranking", m.ID)
		}
	}
	got := map[int]bool{}
	for _, m := range r.Movies {
		got[m.ID] = true
	}
	for _, want := range []int{41, 42, 43} {
		if !got[want] {
			t.Errorf("expansion candidate %d missing from ranking", want)
		}
	}
}

func TestPartialSeedFailureStillSucceeds(t *testing.T) {
	events := playEvents(1, 2, 3, 4, 5, 6, 7, 8)
	details := map[int]*tmdb.MovieDetails{}
	for id := 1; id <= 8; id++ {
		details[id] = &tmdb.MovieDetails{
			Movie:         tmdb.Movie{ID: id},
			SimilarMovies: []tmdb.Movie{{ID: 100 + id}},
		}
	}
	meta := &fakeMeta{
		trending:    movieRange(500, 20),
		details:     details,
		failDetails: map[int]bool{3: true, 6: true},
	}
	e := NewEngine(meta, &fakeActivity{events: events}, &fakeCatalog{})

	r, err := e.PersonalizedRanking(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PersonalizedRanking: %v", err)
	}
	if r.FailedSeeds != 2 {
		t.Errorf("FailedSeeds = %d, want 2", r.FailedSeeds)
	}
	got := map[int]bool{}
	for _, m := range r.Movies {
		got[m.ID] = true
	}
	if got[103] || got[106] {
		t.Error("candidates from failed seeds should be absent")
	}
	if !got[101] || !got[108] {
		t.Error("candidates from healthy seeds should be present")
	}
}

func TestAllSeedsFailedFallsBackToPopular(t *testing.T) {
	meta := &fakeMeta{
		popular:     movieRange(100, 25),
		trendingErr: errors.New("down"),
		failDetails: map[int]bool{1: true, 2: true, 3: true},
	}
	e := NewEngine(meta, &fakeActivity{events: playEvents(1, 2, 3)}, &fakeCatalog{})

	r, err := e.PersonalizedRanking(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PersonalizedRanking: %v", err)
	}
	if r.Tier != TierFallbackPopular {
		t.Fatalf("tier = %q, want %q", r.Tier, TierFallbackPopular)
	}
	if len(r.Movies) != 20 {
		t.Errorf("fallback tier returned %d movies, want 20", len(r.Movies))
	}
}

func TestTotalOutageReturnsError(t *testing.T) {
	meta := &fakeMeta{
		popularErr:  errors.New("down"),
		trendingErr: errors.New("down"),
		topRatedErr: errors.New("down"),
	}
	e := NewEngine(meta, &fakeActivity{}, &fakeCatalog{})

	_, err := e.PersonalizedRanking(context.Background(), "")
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestRankingNeverExceedsOutputCap(t *testing.T) {
	details := map[int]*tmdb.MovieDetails{}
	for id := 1; id <= 8; id++ {
		details[id] = &tmdb.MovieDetails{
			Movie:         tmdb.Movie{ID: id},
			SimilarMovies: movieRange(1000+id*100, 10),
		}
	}
	meta := &fakeMeta{
		trending: movieRange(600, 40),
		details:  details,
	}
	e := NewEngine(meta, &fakeActivity{events: playEvents(1, 2, 3, 4, 5, 6, 7, 8)}, &fakeCatalog{})

	r, err := e.PersonalizedRanking(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("PersonalizedRanking: %v", err)
	}
	if len(r.Movies) > outputCap {
		t.Errorf("ranking has %d movies, cap is %d", len(r.Movies), outputCap)
	}
}

func TestScoreEventsWeightsAndRecency(t *testing.T) {
	events := []activity.Event{
		{MovieID: 1, ActivityType: activity.TypePlay},   // 10 * 1.50
		{MovieID: 2, ActivityType: activity.TypeSearch}, // 2 * 1.49
		{MovieID: 1, ActivityType: activity.TypeLike},   // 6 * 1.48
	}
	scores, excluded := ScoreEvents(events)

	if got, want := scores[1], 10*1.50+6*1.48; !almostEqual(got, want) {
		t.Errorf("score[1] = %v, want %v", got, want)
	}
	if got, want := scores[2], 2*1.49; !almostEqual(got, want) {
		t.Errorf("score[2] = %v, want %v", got, want)
	}
	if !excluded[1] || !excluded[2] {
		t.Error("all three events are within the exclusion window")
	}
}

func TestScoreEventsUnknownTypeDefaultsToOne(t *testing.T) {
	scores, _ := ScoreEvents([]activity.Event{
		{MovieID: 9, ActivityType: "hover"},
	})
	if got, want := scores[9], 1*1.50; !almostEqual(got, want) {
		t.Errorf("score[9] = %v, want %v", got, want)
	}
}

func TestTopSeedsTieBreaksOnLowerID(t *testing.T) {
	scores := map[int]float64{30: 5, 10: 5, 20: 5, 40: 9}
	seeds := TopSeeds(scores, 3)
	want := []int{40, 10, 20}
	if len(seeds) != len(want) {
		t.Fatalf("got %d seeds, want %d", len(seeds), len(want))
	}
	for i := range want {
		if seeds[i] != want[i] {
			t.Errorf("seeds[%d] = %d, want %d", i, seeds[i], want[i])
		}
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
