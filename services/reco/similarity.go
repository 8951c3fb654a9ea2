// similarity.go — bag-of-words cosine similarity over the local catalog.
package reco

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/cineverse/cineverse/services/catalog"
	"github.com/cineverse/cineverse/services/tmdb"
)

// defaultTopK is used when the caller passes a non-positive topK.
const defaultTopK = 10

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// SimilarityResult pairs a candidate movie with its integer similarity score.
type SimilarityResult struct {
	Movie      tmdb.Movie `json:"movie"`
	Similarity int        `json:"similarity"`
}

// Similar finds the catalog movies most similar to the one whose title
// contains the given string. Similarity is cosine distance over word
// frequency vectors built from title, overview and genres, scaled to an
// integer in [0, 100].
//
// Returns ErrNotFound when no catalog title matches; the catalog store's own
// not-found sentinel is translated so callers match a single error.
func (e *Engine) Similar(ctx context.Context, title string, topK int) (*tmdb.Movie, []SimilarityResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}

	source, err := e.catalog.FindByTitle(ctx, title)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	candidates, err := e.catalog.AllExcept(ctx, source.ID)
	if err != nil {
		return nil, nil, err
	}

	sourceVec := wordVector(movieText(*source))

	results := make([]SimilarityResult, 0, len(candidates))
	for _, c := range candidates {
		sim := cosine(sourceVec, wordVector(movieText(c)))
		results = append(results, SimilarityResult{
			Movie:      c,
			Similarity: int(math.Round(sim * 100)),
		})
	}

	// Score desc; equal scores break toward the lower movie id so repeated
	// queries return the same order.
	sort.Slice(results, func(a, b int) bool {
		if results[a].Similarity != results[b].Similarity {
			return results[a].Similarity > results[b].Similarity
		}
		return results[a].Movie.ID < results[b].Movie.ID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return source, results, nil
}

// movieText is the document a movie contributes to the similarity corpus.
func movieText(m tmdb.Movie) string {
	return m.Title + " " + m.Overview + " " + strings.Join(m.Genres, " ")
}

// wordVector builds a lowercase term-frequency map.
func wordVector(text string) map[string]int {
	vec := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		vec[tok]++
	}
	return vec
}

// cosine computes cosine similarity between two frequency vectors.
// Either vector having zero magnitude yields 0, not NaN.
func cosine(a, b map[string]int) float64 {
	var dot, magA, magB float64
	for term, fa := range a {
		magA += float64(fa) * float64(fa)
		if fb, ok := b[term]; ok {
			dot += float64(fa) * float64(fb)
		}
	}
	for _, fb := range b {
		magB += float64(fb) * float64(fb)
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
