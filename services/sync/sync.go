// Package sync keeps the local movie catalog mirrored from TMDB.
//
// A background worker refreshes the catalog on a fixed interval. Each pass
// upserts the popular, trending and top-rated lists, which is enough corpus
// for title lookups and the similarity engine without crawling the full
// upstream catalog.
package sync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cineverse/cineverse/internal/metrics"
	"github.com/cineverse/cineverse/services/tmdb"
)

// DefaultInterval is the gap between catalog refresh passes.
const DefaultInterval = 10 * time.Minute

// initialDelay postpones the first pass so startup is not serialized behind
// a full catalog sync.
const initialDelay = 10 * time.Second

// Source is the subset of the TMDB client the worker needs.
type Source interface {
	Popular(ctx context.Context, page int) (tmdb.MovieList, error)
	Trending(ctx context.Context, window string) ([]tmdb.Movie, error)
	TopRated(ctx context.Context, page int) (tmdb.MovieList, error)
}

// Sink receives the synced movies.
type Sink interface {
	Upsert(ctx context.Context, m tmdb.Movie) error
	Count(ctx context.Context) (int64, error)
}

// Worker mirrors the upstream catalog into the sink.
type Worker struct {
	source   Source
	sink     Sink
	interval time.Duration
	log      *logrus.Logger

	running atomic.Bool
}

// NewWorker creates a Worker. interval <= 0 uses DefaultInterval.
func NewWorker(source Source, sink Sink, interval time.Duration, log *logrus.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Worker{source: source, sink: sink, interval: interval, log: log}
}

// Run blocks until ctx is cancelled, refreshing the catalog on the interval.
func (w *Worker) Run(ctx context.Context) {
	w.log.WithField("interval", w.interval).Info("catalog sync worker started")

	select {
	case <-ctx.Done():
		return
	case <-time.After(initialDelay):
		w.SyncOnce(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("catalog sync worker stopped")
			return
		case <-ticker.C:
			w.SyncOnce(ctx)
		}
	}
}

// SyncOnce performs one refresh pass. Overlapping passes are skipped, not
// queued: if a slow pass is still running when the ticker fires, the new
// tick is dropped.
func (w *Worker) SyncOnce(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.log.Warn("catalog sync still running, skipping this pass")
		return
	}
	defer w.running.Store(false)

	start := time.Now()
	var synced, failed int

	upsertAll := func(movies []tmdb.Movie) {
		for _, m := range movies {
			if err := w.sink.Upsert(ctx, m); err != nil {
				failed++
				w.log.WithError(err).WithField("movie", m.ID).Warn("catalog upsert failed")
				continue
			}
			synced++
		}
	}

	for page := 1; page <= 2; page++ {
		list, err := w.source.Popular(ctx, page)
		if err != nil {
			w.log.WithError(err).Warn("popular fetch failed")
			break
		}
		upsertAll(list.Movies)
	}
	if trending, err := w.source.Trending(ctx, "week"); err != nil {
		w.log.WithError(err).Warn("trending fetch failed")
	} else {
		upsertAll(trending)
	}
	if topRated, err := w.source.TopRated(ctx, 1); err != nil {
		w.log.WithError(err).Warn("top-rated fetch failed")
	} else {
		upsertAll(topRated.Movies)
	}

	if total, err := w.sink.Count(ctx); err == nil {
		metrics.CatalogMovies.Set(float64(total))
	}

	w.log.WithFields(logrus.Fields{
		"synced":   synced,
		"failed":   failed,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("catalog sync pass complete")
}
