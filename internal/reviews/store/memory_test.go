package store

import (
	"context"
	"testing"

	moviestore "github.com/example/movie-platform/internal/movies/store"
	userstore "github.com/example/movie-platform/internal/users/store"
)

func newTestStores(t *testing.T) (*InMemoryStore, *moviestore.InMemoryStore, *userstore.InMemoryStore) {
	t.Helper()
	movies := moviestore.NewInMemoryStore()
	users := userstore.NewInMemoryStore()
	return NewInMemoryStore(movies, users), movies, users
}

func addMovie(t *testing.T, movies *moviestore.InMemoryStore) moviestore.Movie {
	t.Helper()
	m, err := movies.Create(context.Background(), moviestore.CreateMovieParams{
		Title: "Heat", Genres: []string{"Crime"}, ReleaseYear: 1995,
		Director: "Michael Mann", Synopsis: "A heist crew and a detective circle each other.",
		Duration: 170, Language: "English",
	})
	if err != nil {
		t.Fatalf("create movie: %v", err)
	}
	return m
}

func addUser(t *testing.T, users *userstore.InMemoryStore, name string) userstore.User {
	t.Helper()
	u, err := users.Create(context.Background(), userstore.CreateUserParams{
		Username: name, Email: name + "@example.com", PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreate_DuplicatePairRejected(t *testing.T) {
	s, movies, users := newTestStores(t)
	ctx := context.Background()
	m := addMovie(t, movies)
	u := addUser(t, users, "alice")

	if _, err := s.Create(ctx, u.ID, m.ID, 5, "a review long enough"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.Create(ctx, u.ID, m.ID, 3, "second attempt at a review")
	if err != ErrDuplicateReview {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}
}

func TestCreate_MissingMovie(t *testing.T) {
	s, _, users := newTestStores(t)
	u := addUser(t, users, "alice")
	_, err := s.Create(context.Background(), u.ID, "no-such-movie", 4, "a review long enough")
	if err != ErrMovieNotFound {
		t.Fatalf("expected ErrMovieNotFound, got %v", err)
	}
}

func TestRecompute_RoundsToOneDecimal(t *testing.T) {
	s, movies, users := newTestStores(t)
	ctx := context.Background()
	m := addMovie(t, movies)

	var reviewIDs []string
	for i, rating := range []int{5, 5, 4} {
		u := addUser(t, users, []string{"a", "b", "c"}[i])
		r, err := s.Create(ctx, u.ID, m.ID, rating, "a review that is long enough")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.RecomputeMovieAggregate(ctx, m.ID); err != nil {
			t.Fatalf("recompute: %v", err)
		}
		reviewIDs = append(reviewIDs, r.ID)
	}

	got, _ := movies.GetByID(ctx, m.ID)
	if got.AverageRating != 4.7 {
		t.Fatalf("expected average 4.7 for [5,5,4], got %v", got.AverageRating)
	}
	if got.TotalReviews != 3 {
		t.Fatalf("expected 3 reviews, got %d", got.TotalReviews)
	}

	// Deleting the rating-4 review lifts the average to 5.0.
	if err := s.Delete(ctx, reviewIDs[2]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.RecomputeMovieAggregate(ctx, m.ID); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	got, _ = movies.GetByID(ctx, m.ID)
	if got.AverageRating != 5.0 {
		t.Fatalf("expected average 5.0 after delete, got %v", got.AverageRating)
	}
	if got.TotalReviews != 2 {
		t.Fatalf("expected 2 reviews after delete, got %d", got.TotalReviews)
	}
}

func TestRecompute_EmptySetResetsToZero(t *testing.T) {
	s, movies, users := newTestStores(t)
	ctx := context.Background()
	m := addMovie(t, movies)
	u := addUser(t, users, "alice")

	r, _ := s.Create(ctx, u.ID, m.ID, 4, "a review that is long enough")
	_, _ = s.RecomputeMovieAggregate(ctx, m.ID)

	if err := s.Delete(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	agg, err := s.RecomputeMovieAggregate(ctx, m.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if agg.AverageRating != 0 || agg.TotalReviews != 0 {
		t.Fatalf("expected 0/0 after last delete, got %v/%d", agg.AverageRating, agg.TotalReviews)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	s, movies, users := newTestStores(t)
	ctx := context.Background()
	m := addMovie(t, movies)
	u := addUser(t, users, "alice")

	r, _ := s.Create(ctx, u.ID, m.ID, 2, "the original review text")

	newRating := 5
	updated, err := s.Update(ctx, r.ID, UpdateReviewParams{Rating: &newRating})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Rating != 5 {
		t.Fatalf("expected rating 5, got %d", updated.Rating)
	}
	if updated.ReviewText != "the original review text" {
		t.Fatalf("expected text unchanged, got %q", updated.ReviewText)
	}
}

func TestListForMovie_PaginationPartition(t *testing.T) {
	s, movies, users := newTestStores(t)
	ctx := context.Background()
	m := addMovie(t, movies)

	const totalReviews = 7
	for i := 0; i < totalReviews; i++ {
		u := addUser(t, users, "user"+string(rune('a'+i)))
		if _, err := s.Create(ctx, u.ID, m.ID, 3, "a review that is long enough"); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	const limit = 3
	seen := map[string]bool{}
	page := 1
	for {
		items, total, err := s.ListForMovie(ctx, m.ID, page, limit, SortCreatedAt)
		if err != nil {
			t.Fatalf("list page %d: %v", page, err)
		}
		if total != totalReviews {
			t.Fatalf("expected total %d, got %d", totalReviews, total)
		}
		for _, it := range items {
			if seen[it.ID] {
				t.Fatalf("review %s appeared on more than one page", it.ID)
			}
			seen[it.ID] = true
		}
		if len(items) < limit {
			break
		}
		page++
	}
	if len(seen) != totalReviews {
		t.Fatalf("pages covered %d of %d reviews", len(seen), totalReviews)
	}
}

func TestListForMovie_AuthorPublicFieldsOnly(t *testing.T) {
	s, movies, users := newTestStores(t)
	ctx := context.Background()
	m := addMovie(t, movies)
	u := addUser(t, users, "alice")

	if _, err := s.Create(ctx, u.ID, m.ID, 4, "a review that is long enough"); err != nil {
		t.Fatalf("create: %v", err)
	}
	items, _, err := s.ListForMovie(ctx, m.ID, 1, 10, SortCreatedAt)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 review, got %d", len(items))
	}
	if items[0].Author.Username != "alice" {
		t.Fatalf("expected author username, got %q", items[0].Author.Username)
	}
}
