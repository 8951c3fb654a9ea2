// types.go — canonical movie record and raw TMDB response shapes.
//
// TMDB responses are heterogeneous: list endpoints return genre_ids, the
// details endpoint returns full genre objects, and appended sub-resources
// (credits, videos, similar) only appear on details. Everything is normalized
// into Movie at this boundary — no raw TMDB field names leak past this package.
package tmdb

import "fmt"

const imageBaseURL = "https://image.tmdb.org/t/p/w500"

// Movie is the canonical movie record used everywhere outside this package.
type Movie struct {
	ID          int      `json:"id" bson:"tmdbId"`
	Title       string   `json:"title" bson:"title"`
	Overview    string   `json:"overview" bson:"overview"`
	ReleaseDate string   `json:"release_date,omitempty" bson:"releaseDate,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty" bson:"posterUrl,omitempty"`
	BackdropURL string   `json:"backdrop_url,omitempty" bson:"backdropUrl,omitempty"`
	Rating      float64  `json:"rating" bson:"rating"`
	Popularity  float64  `json:"popularity" bson:"popularity"`
	Genres      []string `json:"genres,omitempty" bson:"genres,omitempty"`
}

// MovieDetails extends Movie with the sub-resources only available from the
// details endpoint (append_to_response=credits,videos,similar).
type MovieDetails struct {
	Movie
	Tagline       string       `json:"tagline,omitempty"`
	Runtime       int          `json:"runtime,omitempty"`
	Status        string       `json:"status,omitempty"`
	Budget        int64        `json:"budget,omitempty"`
	Revenue       int64        `json:"revenue,omitempty"`
	Cast          []CastMember `json:"cast,omitempty"`
	Director      string       `json:"director,omitempty"`
	Trailer       *Trailer     `json:"trailer,omitempty"`
	SimilarMovies []Movie      `json:"similar_movies"`
}

// CastMember is one credited actor.
type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfileURL  string `json:"profile_url,omitempty"`
}

// Trailer is the preferred YouTube trailer for a movie.
type Trailer struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Genre is a TMDB genre entry.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Page is pagination metadata returned by list endpoints.
type Page struct {
	Number       int `json:"page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// MovieList is a normalized list response plus pagination.
type MovieList struct {
	Movies []Movie `json:"movies"`
	Page   Page    `json:"-"`
}

// ---------- raw wire shapes --------------------------------------------------

// rawMovie covers both list-endpoint and details-endpoint movie fields.
type rawMovie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
	Popularity   float64 `json:"popularity"`
	GenreIDs     []int   `json:"genre_ids"`
	Genres       []Genre `json:"genres"`
}

type rawMovieList struct {
	Page         int        `json:"page"`
	Results      []rawMovie `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

type rawVideo struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type rawCredit struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Job         string `json:"job"`
	ProfilePath string `json:"profile_path"`
}

type rawDetails struct {
	rawMovie
	Tagline string `json:"tagline"`
	Runtime int    `json:"runtime"`
	Status  string `json:"status"`
	Budget  int64  `json:"budget"`
	Revenue int64  `json:"revenue"`
	Credits struct {
		Cast []rawCredit `json:"cast"`
		Crew []rawCredit `json:"crew"`
	} `json:"credits"`
	Videos struct {
		Results []rawVideo `json:"results"`
	} `json:"videos"`
	Similar struct {
		Results []rawMovie `json:"results"`
	} `json:"similar"`
}

// normalizeMovie converts a raw TMDB movie into the canonical record.
// This is the single normalization boundary for list-shaped responses.
func normalizeMovie(m rawMovie) Movie {
	out := Movie{
		ID:          m.ID,
		Title:       m.Title,
		Overview:    m.Overview,
		ReleaseDate: m.ReleaseDate,
		Rating:      m.VoteAverage,
		Popularity:  m.Popularity,
	}
	if m.PosterPath != "" {
		out.PosterURL = imageBaseURL + m.PosterPath
	}
	if m.BackdropPath != "" {
		out.BackdropURL = imageBaseURL + m.BackdropPath
	}
	for _, g := range m.Genres {
		out.Genres = append(out.Genres, g.Name)
	}
	return out
}

func normalizeList(raw rawMovieList) MovieList {
	list := MovieList{
		Movies: make([]Movie, 0, len(raw.Results)),
		Page: Page{
			Number:       raw.Page,
			TotalPages:   raw.TotalPages,
			TotalResults: raw.TotalResults,
		},
	}
	for _, m := range raw.Results {
		list.Movies = append(list.Movies, normalizeMovie(m))
	}
	return list
}

func normalizeDetails(raw rawDetails) *MovieDetails {
	d := &MovieDetails{
		Movie:   normalizeMovie(raw.rawMovie),
		Tagline: raw.Tagline,
		Runtime: raw.Runtime,
		Status:  raw.Status,
		Budget:  raw.Budget,
		Revenue: raw.Revenue,
	}

	for i, c := range raw.Credits.Cast {
		if i >= 10 {
			break
		}
		member := CastMember{ID: c.ID, Name: c.Name, Character: c.Character}
		if c.ProfilePath != "" {
			member.ProfileURL = imageBaseURL + c.ProfilePath
		}
		d.Cast = append(d.Cast, member)
	}
	for _, c := range raw.Credits.Crew {
		if c.Job == "Director" {
			d.Director = c.Name
			break
		}
	}

	// Prefer an official YouTube trailer; fall back to the first video.
	videos := raw.Videos.Results
	for _, v := range videos {
		if v.Type == "Trailer" && v.Site == "YouTube" {
			d.Trailer = &Trailer{Key: v.Key, Name: v.Name, URL: youtubeEmbedURL(v.Key)}
			break
		}
	}
	if d.Trailer == nil && len(videos) > 0 {
		v := videos[0]
		d.Trailer = &Trailer{Key: v.Key, Name: v.Name, URL: youtubeEmbedURL(v.Key)}
	}

	d.SimilarMovies = make([]Movie, 0, 10)
	for i, m := range raw.Similar.Results {
		if i >= 10 {
			break
		}
		d.SimilarMovies = append(d.SimilarMovies, normalizeMovie(m))
	}
	return d
}

func youtubeEmbedURL(key string) string {
	return fmt.Sprintf("https://www.youtube.com/embed/%s", key)
}
