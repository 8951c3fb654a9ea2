// sync_test.go — refresh pass behavior and the overlap guard.
package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cineverse/cineverse/services/tmdb"
)

type fakeSource struct {
	popular  []tmdb.Movie
	trending []tmdb.Movie
	topRated []tmdb.Movie
	fail     bool
}

func (f *fakeSource) Popular(ctx context.Context, page int) (tmdb.MovieList, error) {
	if f.fail {
		return tmdb.MovieList{}, errors.New("down")
	}
	if page > 1 {
		return tmdb.MovieList{}, nil
	}
	return tmdb.MovieList{Movies: f.popular}, nil
}

func (f *fakeSource) Trending(ctx context.Context, window string) ([]tmdb.Movie, error) {
	if f.fail {
		return nil, errors.New("down")
	}
	return f.trending, nil
}

func (f *fakeSource) TopRated(ctx context.Context, page int) (tmdb.MovieList, error) {
	if f.fail {
		return tmdb.MovieList{}, errors.New("down")
	}
	return tmdb.MovieList{Movies: f.topRated}, nil
}

type fakeSink struct {
	mu     sync.Mutex
	byID   map[int]tmdb.Movie
	block  chan struct{} // when set, Upsert blocks until closed
	visits int
}

func newFakeSink() *fakeSink {
	return &fakeSink{byID: map[int]tmdb.Movie{}}
}

func (f *fakeSink) Upsert(ctx context.Context, m tmdb.Movie) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[m.ID] = m
	f.visits++
	return nil
}

func (f *fakeSink) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSyncOnceUpsertsAllSources(t *testing.T) {
	source := &fakeSource{
		popular:  []tmdb.Movie{{ID: 1}, {ID: 2}},
		trending: []tmdb.Movie{{ID: 2}, {ID: 3}},
		topRated: []tmdb.Movie{{ID: 4}},
	}
	sink := newFakeSink()
	w := NewWorker(source, sink, time.Minute, quietLogger())

	w.SyncOnce(context.Background())

	if len(sink.byID) != 4 {
		t.Errorf("catalog has %d movies, want 4 distinct", len(sink.byID))
	}
	// Movie 2 came from two lists: both writes happen, the map keeps one.
	if sink.visits != 5 {
		t.Errorf("upserts = %d, want 5", sink.visits)
	}
}

func TestSyncOnceSurvivesUpstreamOutage(t *testing.T) {
	sink := newFakeSink()
	w := NewWorker(&fakeSource{fail: true}, sink, time.Minute, quietLogger())

	w.SyncOnce(context.Background())

	if len(sink.byID) != 0 {
		t.Errorf("catalog has %d movies after total outage, want 0", len(sink.byID))
	}
}

func TestOverlappingPassSkipped(t *testing.T) {
	source := &fakeSource{popular: []tmdb.Movie{{ID: 1}}}
	sink := newFakeSink()
	sink.block = make(chan struct{})
	w := NewWorker(source, sink, time.Minute, quietLogger())

	started := make(chan struct{})
	go func() {
		close(started)
		w.SyncOnce(context.Background())
	}()
	<-started
	for !w.running.Load() {
		time.Sleep(time.Millisecond)
	}

	// Second pass must bail immediately while the first is blocked.
	doneSecond := make(chan struct{})
	go func() {
		w.SyncOnce(context.Background())
		close(doneSecond)
	}()
	select {
	case <-doneSecond:
	case <-time.After(time.Second):
		t.Fatal("overlapping pass did not skip")
	}

	close(sink.block)
}
