package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	moviestore "github.com/example/movie-platform/internal/movies/store"
	userstore "github.com/example/movie-platform/internal/users/store"
)

// InMemoryStore is the development/test review store. It collaborates
// with the in-memory movie and user stores for aggregate writes and
// author enrichment, mirroring the joins the Postgres store performs.
type InMemoryStore struct {
	mu      sync.RWMutex
	reviews map[string]Review    // id -> review
	byPair  map[[2]string]string // (userID, movieID) -> review id
	movies  *moviestore.InMemoryStore
	users   *userstore.InMemoryStore
}

func NewInMemoryStore(movies *moviestore.InMemoryStore, users *userstore.InMemoryStore) *InMemoryStore {
	return &InMemoryStore{
		reviews: make(map[string]Review),
		byPair:  make(map[[2]string]string),
		movies:  movies,
		users:   users,
	}
}

func (s *InMemoryStore) Create(ctx context.Context, userID, movieID string, rating int, text string) (Review, error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return Review{}, ErrMovieNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{userID, movieID}
	if _, exists := s.byPair[key]; exists {
		return Review{}, ErrDuplicateReview
	}
	now := time.Now().UTC()
	r := Review{
		ID:         uuid.NewString(),
		UserID:     userID,
		MovieID:    movieID,
		Rating:     rating,
		ReviewText: text,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.reviews[r.ID] = r
	s.byPair[key] = r.ID
	return r, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return Review{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) Update(_ context.Context, id string, p UpdateReviewParams) (Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return Review{}, ErrNotFound
	}
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.ReviewText != nil {
		r.ReviewText = *p.ReviewText
	}
	r.UpdatedAt = time.Now().UTC()
	s.reviews[id] = r
	return r, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.reviews, id)
	delete(s.byPair, [2]string{r.UserID, r.MovieID})
	return nil
}

func (s *InMemoryStore) ListForMovie(ctx context.Context, movieID string, page, limit int, sortBy string) ([]ReviewWithAuthor, int, error) {
	page, limit, sortBy = normalizeListParams(page, limit, sortBy)

	s.mu.RLock()
	matched := []Review{}
	for _, r := range s.reviews {
		if r.MovieID == movieID {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if sortBy == SortRating {
			if matched[i].Rating != matched[j].Rating {
				return matched[i].Rating > matched[j].Rating
			}
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []ReviewWithAuthor{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	out := make([]ReviewWithAuthor, 0, end-start)
	for _, r := range matched[start:end] {
		out = append(out, ReviewWithAuthor{Review: r, Author: s.author(ctx, r.UserID)})
	}
	return out, total, nil
}

func (s *InMemoryStore) ListForUser(ctx context.Context, userID string, limit int) ([]ReviewWithMovie, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	s.mu.RLock()
	matched := []Review{}
	for _, r := range s.reviews {
		if r.UserID == userID {
			matched = append(matched, r)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]ReviewWithMovie, 0, len(matched))
	for _, r := range matched {
		rm := ReviewWithMovie{Review: r}
		if m, err := s.movies.GetByID(ctx, r.MovieID); err == nil {
			rm.Movie = m.Summary()
		}
		out = append(out, rm)
	}
	return out, nil
}

func (s *InMemoryStore) RecomputeMovieAggregate(ctx context.Context, movieID string) (Aggregate, error) {
	s.mu.RLock()
	sum, n := 0, 0
	for _, r := range s.reviews {
		if r.MovieID == movieID {
			sum += r.Rating
			n++
		}
	}
	s.mu.RUnlock()

	agg := Aggregate{AverageRating: roundRating(sum, n), TotalReviews: n}
	if err := s.movies.ApplyRatingAggregate(ctx, movieID, agg.AverageRating, agg.TotalReviews); err != nil {
		return Aggregate{}, ErrMovieNotFound
	}
	return agg, nil
}

func (s *InMemoryStore) author(ctx context.Context, userID string) Author {
	u, err := s.users.GetPublic(ctx, userID)
	if err != nil {
		return Author{ID: userID}
	}
	return Author{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}
