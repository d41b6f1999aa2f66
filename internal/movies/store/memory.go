package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is the development/test catalog store. It implements the
// same filtering semantics as the Postgres store in plain Go.
type InMemoryStore struct {
	mu     sync.RWMutex
	movies map[string]Movie
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{movies: make(map[string]Movie)}
}

func (s *InMemoryStore) Create(_ context.Context, p CreateMovieParams) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	m := Movie{
		ID:          uuid.NewString(),
		Title:       p.Title,
		Genres:      append([]string(nil), p.Genres...),
		ReleaseYear: p.ReleaseYear,
		Director:    p.Director,
		Cast:        append([]CastMember(nil), p.Cast...),
		Synopsis:    p.Synopsis,
		PosterURL:   p.PosterURL,
		TrailerURL:  p.TrailerURL,
		Duration:    p.Duration,
		Language:    p.Language,
		Featured:    p.Featured,
		Trending:    p.Trending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.movies[m.ID] = m
	return m, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return Movie{}, ErrNotFound
	}
	return m, nil
}

// ApplyRatingAggregate overwrites the derived rating fields. It is called
// by the review store's recompute step.
func (s *InMemoryStore) ApplyRatingAggregate(_ context.Context, movieID string, avg float64, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[movieID]
	if !ok {
		return ErrNotFound
	}
	m.AverageRating = avg
	m.TotalReviews = total
	m.UpdatedAt = time.Now().UTC()
	s.movies[movieID] = m
	return nil
}

func (s *InMemoryStore) List(_ context.Context, q ListQuery) ([]Movie, int, error) {
	q = q.normalize()

	s.mu.RLock()
	matched := make([]Movie, 0, len(s.movies))
	for _, m := range s.movies {
		if matches(m, q) {
			matched = append(matched, m)
		}
	}
	s.mu.RUnlock()

	sortMovies(matched, q.SortBy, q.SortOrder)

	total := len(matched)
	start := (q.Page - 1) * q.Limit
	if start >= total {
		return []Movie{}, total, nil
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matches(m Movie, q ListQuery) bool {
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(m.Title), needle) &&
			!strings.Contains(strings.ToLower(m.Synopsis), needle) {
			return false
		}
	}
	if len(q.Genres) > 0 && !genresIntersect(m.Genres, q.Genres) {
		return false
	}
	if q.Year != 0 && m.ReleaseYear != q.Year {
		return false
	}
	if q.MinRating != nil && m.AverageRating < *q.MinRating {
		return false
	}
	if q.MaxRating != nil && m.AverageRating > *q.MaxRating {
		return false
	}
	return true
}

func genresIntersect(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func sortMovies(movies []Movie, sortBy, order string) {
	less := func(a, b Movie) bool { return a.CreatedAt.Before(b.CreatedAt) }
	switch sortBy {
	case SortTitle:
		less = func(a, b Movie) bool { return a.Title < b.Title }
	case SortReleaseYear:
		less = func(a, b Movie) bool { return a.ReleaseYear < b.ReleaseYear }
	case SortAverageRating:
		less = func(a, b Movie) bool { return a.AverageRating < b.AverageRating }
	}
	sort.SliceStable(movies, func(i, j int) bool {
		if order == "asc" {
			return less(movies[i], movies[j])
		}
		return less(movies[j], movies[i])
	})
}

func (s *InMemoryStore) Featured(_ context.Context, limit int) ([]Movie, error) {
	return s.flagged(func(m Movie) bool { return m.Featured }, limit), nil
}

func (s *InMemoryStore) Trending(_ context.Context, limit int) ([]Movie, error) {
	return s.flagged(func(m Movie) bool { return m.Trending }, limit), nil
}

func (s *InMemoryStore) flagged(keep func(Movie) bool, limit int) []Movie {
	if limit <= 0 {
		limit = 6
	}
	s.mu.RLock()
	out := []Movie{}
	for _, m := range s.movies {
		if keep(m) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	sortMovies(out, SortCreatedAt, "desc")
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
