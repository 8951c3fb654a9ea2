// personalized.go — weighted-recency activity scoring and seed expansion.
package reco

import (
	"context"
	"sort"

	"github.com/cineverse/cineverse/services/activity"
	"github.com/cineverse/cineverse/services/tmdb"
)

// Per-event weights. Unknown activity types default to 1.
var activityWeights = map[string]float64{
	activity.TypePlay:     10,
	activity.TypePurchase: 8,
	activity.TypeLike:     6,
	activity.TypeShare:    5,
	activity.TypeComment:  4,
	activity.TypeView:     3,
	activity.TypeSearch:   2,
	activity.TypePageView: 1,
}

const (
	historyWindow   = 100 // events considered per ranking
	recencyWindow   = 50  // events that earn a recency bonus
	exclusionWindow = 20  // most-recent events whose movies are excluded
	seedCount       = 8   // top-scored movies used for expansion
	expansionCap    = 15  // similar-movie candidates before backfill
	outputCap       = 20  // hard cap on returned movies
)

// PersonalizedRanking computes a recommendation list for userID.
//
// Fallback chain: anonymous users get a 10 popular + 10 trending blend; users
// with no history get 7 popular + 7 trending + 6 top-rated; a total upstream
// outage degrades to popular page 1; only when that also fails does the
// caller see an error.
func (e *Engine) PersonalizedRanking(ctx context.Context, userID string) (*Ranking, error) {
	if userID == "" {
		return e.anonymousBlend(ctx)
	}

	events, err := e.activity.QueryRecent(ctx, userID, historyWindow)
	if err != nil {
		// History unavailable is not fatal: serve the cold-start blend.
		return e.coldStartBlend(ctx)
	}
	if len(events) == 0 {
		return e.coldStartBlend(ctx)
	}

	scores, excluded := ScoreEvents(events)
	seeds := TopSeeds(scores, seedCount)

	// Fan out the similar-list fetch for every seed concurrently. A failed
	// seed contributes an empty list; it must never abort the ranking.
	type seedResult struct {
		movies []tmdb.Movie
		failed bool
	}
	results := make([]seedResult, len(seeds))
	done := make(chan struct{}, len(seeds))
	for i, seed := range seeds {
		go func(i, id int) {
			defer func() { done <- struct{}{} }()
			details, err := e.meta.Details(ctx, id)
			if err != nil {
				results[i] = seedResult{failed: true}
				return
			}
			results[i] = seedResult{movies: details.SimilarMovies}
		}(i, seed)
	}
	for range seeds {
		<-done
	}

	// Flatten in fan-out submission order so merging stays deterministic.
	ranking := &Ranking{Tier: TierPersonalized}
	seen := make(map[int]bool)
	for _, res := range results {
		if res.failed {
			ranking.FailedSeeds++
			continue
		}
		for _, m := range res.movies {
			if len(ranking.Movies) >= expansionCap {
				break
			}
			if excluded[m.ID] || seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			ranking.Movies = append(ranking.Movies, m)
		}
	}

	// Backfill with trending when expansion came up short.
	if len(ranking.Movies) < expansionCap {
		trending, err := e.meta.Trending(ctx, "week")
		if err == nil {
			for _, m := range trending {
				if len(ranking.Movies) >= outputCap {
					break
				}
				if excluded[m.ID] || seen[m.ID] {
					continue
				}
				seen[m.ID] = true
				ranking.Movies = append(ranking.Movies, m)
			}
		}
	}

	if len(ranking.Movies) == 0 && ranking.FailedSeeds == len(seeds) {
		// Every expansion call failed — the metadata source is likely down.
		return e.popularOnly(ctx)
	}
	if len(ranking.Movies) > outputCap {
		ranking.Movies = ranking.Movies[:outputCap]
	}
	return ranking, nil
}

// ScoreEvents accumulates weighted-recency scores per movie and collects the
// exclusion set: movies touched by the 20 most recent events.
//
// The event at position i (0 = most recent) gets weight * (1 + (50-i)/100)
// for the first 50 events and no bonus beyond. Events without a movie id
// contribute to no movie's score.
func ScoreEvents(events []activity.Event) (map[int]float64, map[int]bool) {
	scores := make(map[int]float64)
	excluded := make(map[int]bool)

	for i, ev := range events {
		if i >= historyWindow {
			break
		}
		weight, ok := activityWeights[ev.ActivityType]
		if !ok {
			weight = 1
		}
		multiplier := 1.0
		if i < recencyWindow {
			multiplier = 1 + float64(recencyWindow-i)/100
		}

		if ev.MovieID != 0 {
			scores[ev.MovieID] += weight * multiplier
			if i < exclusionWindow {
				excluded[ev.MovieID] = true
			}
		}
	}
	return scores, excluded
}

// TopSeeds returns the n highest-scored movie ids. Ties break toward the
// lower movie id so the ranking is deterministic.
func TopSeeds(scores map[int]float64, n int) []int {
	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		if scores[ids[a]] != scores[ids[b]] {
			return scores[ids[a]] > scores[ids[b]]
		}
		return ids[a] < ids[b]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// anonymousBlend serves logged-out users: 10 popular + 10 trending.
func (e *Engine) anonymousBlend(ctx context.Context) (*Ranking, error) {
	popular, popErr := e.meta.Popular(ctx, 1)
	trending, trendErr := e.meta.Trending(ctx, "week")
	if popErr != nil && trendErr != nil {
		return e.popularOnly(ctx)
	}

	movies := take(popular.Movies, 10)
	movies = append(movies, take(trending, 10)...)
	return &Ranking{Movies: movies, Tier: TierAnonymous}, nil
}

// coldStartBlend serves logged-in users with no history:
// 7 popular + 7 trending + 6 top-rated.
func (e *Engine) coldStartBlend(ctx context.Context) (*Ranking, error) {
	popular, popErr := e.meta.Popular(ctx, 1)
	trending, trendErr := e.meta.Trending(ctx, "week")
	topRated, topErr := e.meta.TopRated(ctx, 1)
	if popErr != nil && trendErr != nil && topErr != nil {
		return e.popularOnly(ctx)
	}

	movies := take(popular.Movies, 7)
	movies = append(movies, take(trending, 7)...)
	movies = append(movies, take(topRated.Movies, 6)...)
	return &Ranking{Movies: movies, Tier: TierColdStart}, nil
}

// popularOnly is the cheapest last-resort tier before surfacing an error.
func (e *Engine) popularOnly(ctx context.Context) (*Ranking, error) {
	popular, err := e.meta.Popular(ctx, 1)
	if err != nil {
		return nil, ErrUpstreamUnavailable
	}
	return &Ranking{Movies: take(popular.Movies, outputCap), Tier: TierFallbackPopular}, nil
}

func take(movies []tmdb.Movie, n int) []tmdb.Movie {
	if len(movies) > n {
		movies = movies[:n]
	}
	out := make([]tmdb.Movie, len(movies))
	copy(out, movies)
	return out
}
