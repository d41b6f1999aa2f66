package store

import (
	"context"
	"errors"
	"math"
	"time"

	moviestore "github.com/example/movie-platform/internal/movies/store"
)

var (
	ErrNotFound        = errors.New("review not found")
	ErrMovieNotFound   = errors.New("movie not found")
	ErrDuplicateReview = errors.New("review already exists for this user and movie")
)

// Review is one user's rating of one movie. At most one review exists per
// (user, movie) pair; the storage layer enforces this with a unique
// constraint, not only a pre-check.
type Review struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	MovieID    string    `json:"movieId"`
	Rating     int       `json:"rating"`
	ReviewText string    `json:"reviewText"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Author carries the reviewer's public display fields. Email and password
// hash never appear here.
type Author struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

type ReviewWithAuthor struct {
	Review
	Author Author `json:"user"`
}

// ReviewWithMovie is the profile-page projection: a review plus a summary
// of the movie it rates.
type ReviewWithMovie struct {
	Review
	Movie moviestore.Summary `json:"movie"`
}

// Aggregate holds the derived rating fields of one movie.
type Aggregate struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

// Review list sort fields, as they appear on the wire. Listings are
// always descending.
const (
	SortCreatedAt = "createdAt"
	SortRating    = "rating"
)

type UpdateReviewParams struct {
	Rating     *int
	ReviewText *string
}

// Store defines review persistence. Every mutation is followed by a
// RecomputeMovieAggregate call for the affected movie; the recompute
// reads the full current review set rather than applying a delta, so
// concurrent mutations converge on the correct aggregate.
type Store interface {
	Create(ctx context.Context, userID, movieID string, rating int, text string) (Review, error)
	GetByID(ctx context.Context, id string) (Review, error)
	// Update applies only the supplied fields; nil fields keep their
	// prior value. Ownership is checked by the caller.
	Update(ctx context.Context, id string, p UpdateReviewParams) (Review, error)
	Delete(ctx context.Context, id string) error
	ListForMovie(ctx context.Context, movieID string, page, limit int, sortBy string) ([]ReviewWithAuthor, int, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]ReviewWithMovie, error)
	// RecomputeMovieAggregate rereads the movie's review set and persists
	// round(mean,1) and the count onto the movie record. An empty set
	// resets both to zero.
	RecomputeMovieAggregate(ctx context.Context, movieID string) (Aggregate, error)
}

// roundRating is the shared rounding rule: mean to one decimal.
func roundRating(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}

func normalizeListParams(page, limit int, sortBy string) (int, int, string) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	if sortBy != SortRating {
		sortBy = SortCreatedAt
	}
	return page, limit, sortBy
}
