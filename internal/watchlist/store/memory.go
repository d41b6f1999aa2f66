package store

import (
	"context"
	"sync"

	moviestore "github.com/example/movie-platform/internal/movies/store"
)

// InMemoryStore is the development/test watchlist store.
type InMemoryStore struct {
	mu     sync.RWMutex
	lists  map[string][]string // userID -> movie ids in insertion order
	movies *moviestore.InMemoryStore
}

func NewInMemoryStore(movies *moviestore.InMemoryStore) *InMemoryStore {
	return &InMemoryStore{lists: make(map[string][]string), movies: movies}
}

func (s *InMemoryStore) Add(ctx context.Context, userID, movieID string) error {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return ErrMovieNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.lists[userID] {
		if id == movieID {
			return ErrAlreadyInList
		}
	}
	s.lists[userID] = append(s.lists[userID], movieID)
	return nil
}

func (s *InMemoryStore) Remove(_ context.Context, userID, movieID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[userID]
	for i, id := range list {
		if id == movieID {
			s.lists[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	// Absent entry: no-op success.
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, userID string) ([]moviestore.Summary, error) {
	s.mu.RLock()
	ids := append([]string(nil), s.lists[userID]...)
	s.mu.RUnlock()

	out := make([]moviestore.Summary, 0, len(ids))
	for _, id := range ids {
		m, err := s.movies.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, m.Summary())
	}
	return out, nil
}
