package store

import (
	"context"
	"errors"

	moviestore "github.com/example/movie-platform/internal/movies/store"
)

var (
	ErrMovieNotFound = errors.New("movie not found")
	ErrAlreadyInList = errors.New("movie already in watchlist")
)

// Store maintains each user's watchlist: an ordered, duplicate-free set
// of movie references. Add rejects duplicates explicitly; Remove
// tolerates absent entries.
type Store interface {
	Add(ctx context.Context, userID, movieID string) error
	Remove(ctx context.Context, userID, movieID string) error
	// List returns the user's watchlist in insertion order as movie
	// summaries, not full catalog records.
	List(ctx context.Context, userID string) ([]moviestore.Summary, error)
}
