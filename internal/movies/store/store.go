package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("movie not found")

// CastMember is one entry of a movie's ordered cast list.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
}

// Movie is the catalog record. AverageRating and TotalReviews are derived
// from the review set and are never edited independently.
type Movie struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Genres        []string     `json:"genre"`
	ReleaseYear   int          `json:"releaseYear"`
	Director      string       `json:"director"`
	Cast          []CastMember `json:"cast"`
	Synopsis      string       `json:"synopsis"`
	PosterURL     string       `json:"posterUrl"`
	TrailerURL    string       `json:"trailerUrl,omitempty"`
	Duration      int          `json:"duration"`
	Language      string       `json:"language"`
	AverageRating float64      `json:"averageRating"`
	TotalReviews  int          `json:"totalReviews"`
	Featured      bool         `json:"featured"`
	Trending      bool         `json:"trending"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Summary is the projection returned by watchlists and profile pages.
type Summary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	PosterURL     string   `json:"posterUrl"`
	AverageRating float64  `json:"averageRating"`
	ReleaseYear   int      `json:"releaseYear"`
	Genres        []string `json:"genre"`
	Director      string   `json:"director"`
}

func (m Movie) Summary() Summary {
	return Summary{
		ID:            m.ID,
		Title:         m.Title,
		PosterURL:     m.PosterURL,
		AverageRating: m.AverageRating,
		ReleaseYear:   m.ReleaseYear,
		Genres:        m.Genres,
		Director:      m.Director,
	}
}

// Sort fields accepted by ListQuery, as they appear on the wire.
const (
	SortCreatedAt     = "createdAt"
	SortTitle         = "title"
	SortReleaseYear   = "releaseYear"
	SortAverageRating = "averageRating"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 50
)

// ListQuery carries the catalog listing filters. Zero-valued filters are
// dropped during query construction, never passed through as match-nothing.
type ListQuery struct {
	Search    string
	Genres    []string
	Year      int
	MinRating *float64
	MaxRating *float64
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// normalize clamps pagination, whitelists sort parameters and discards
// empty filter values. Both store implementations call it first.
func (q ListQuery) normalize() ListQuery {
	q.Search = strings.TrimSpace(q.Search)

	genres := q.Genres[:0:0]
	for _, g := range q.Genres {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}
	q.Genres = genres

	switch q.SortBy {
	case SortTitle, SortReleaseYear, SortAverageRating, SortCreatedAt:
	default:
		q.SortBy = SortCreatedAt
	}
	if !strings.EqualFold(q.SortOrder, "asc") {
		q.SortOrder = "desc"
	} else {
		q.SortOrder = "asc"
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	return q
}

type CreateMovieParams struct {
	Title       string
	Genres      []string
	ReleaseYear int
	Director    string
	Cast        []CastMember
	Synopsis    string
	PosterURL   string
	TrailerURL  string
	Duration    int
	Language    string
	Featured    bool
	Trending    bool
}

// Store defines catalog persistence.
type Store interface {
	Create(ctx context.Context, p CreateMovieParams) (Movie, error)
	GetByID(ctx context.Context, id string) (Movie, error)
	// List applies the normalized query and returns one page plus the
	// total match count for pagination metadata.
	List(ctx context.Context, q ListQuery) ([]Movie, int, error)
	Featured(ctx context.Context, limit int) ([]Movie, error)
	Trending(ctx context.Context, limit int) ([]Movie, error)
}
