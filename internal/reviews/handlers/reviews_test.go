package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	moviestore "github.com/example/movie-platform/internal/movies/store"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/reviews/store"
	userstore "github.com/example/movie-platform/internal/users/store"
)

// setupReq builds a request with chi URL params and optional user_id in context.
func setupReq(method, url string, body string, params map[string]string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

type fixture struct {
	movies  *moviestore.InMemoryStore
	users   *userstore.InMemoryStore
	reviews *store.InMemoryStore
	movieID string
	userID  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	ms := moviestore.NewInMemoryStore()
	us := userstore.NewInMemoryStore()
	rs := store.NewInMemoryStore(ms, us)

	m, err := ms.Create(ctx, moviestore.CreateMovieParams{
		Title: "Heat", Genres: []string{"Crime"}, ReleaseYear: 1995,
		Director: "Michael Mann", Synopsis: "A heist crew and the detective chasing them.",
		PosterURL: "https://img.example.com/heat.jpg", Duration: 170, Language: "English",
	})
	if err != nil {
		t.Fatalf("seed movie: %v", err)
	}
	u, err := us.Create(ctx, userstore.CreateUserParams{
		Username: "filmfan", Email: "fan@example.com", PasswordHash: "x", Role: "user",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return fixture{movies: ms, users: us, reviews: rs, movieID: m.ID, userID: u.ID}
}

func TestSubmitReview(t *testing.T) {
	f := newFixture(t)
	handler := SubmitReview(f.reviews, f.users, nil)

	req := setupReq(http.MethodPost, "/v1/movies/"+f.movieID+"/reviews",
		`{"rating":5,"reviewText":"An absolute masterpiece of the genre."}`,
		map[string]string{"movie_id": f.movieID}, f.userID)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Message string                 `json:"message"`
		Review  store.ReviewWithAuthor `json:"review"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Review.Rating != 5 {
		t.Fatalf("expected rating 5, got %d", resp.Review.Rating)
	}
	if resp.Review.Author.Username != "filmfan" {
		t.Fatalf("expected author filmfan, got %q", resp.Review.Author.Username)
	}

	// The submit must have recomputed the movie aggregate.
	m, _ := f.movies.GetByID(context.Background(), f.movieID)
	if m.AverageRating != 5.0 || m.TotalReviews != 1 {
		t.Fatalf("expected aggregate 5.0/1, got %.1f/%d", m.AverageRating, m.TotalReviews)
	}
}

func TestSubmitReview_ShortText(t *testing.T) {
	f := newFixture(t)
	handler := SubmitReview(f.reviews, f.users, nil)

	// nine characters, one short of the minimum
	req := setupReq(http.MethodPost, "/v1/movies/"+f.movieID+"/reviews",
		`{"rating":4,"reviewText":"too short"}`,
		map[string]string{"movie_id": f.movieID}, f.userID)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "must be at least 10 characters") {
		t.Fatalf("expected min-length message, got %s", rr.Body.String())
	}
}

func TestSubmitReview_Duplicate(t *testing.T) {
	f := newFixture(t)
	handler := SubmitReview(f.reviews, f.users, nil)

	body := `{"rating":4,"reviewText":"Good enough to watch twice."}`
	first := setupReq(http.MethodPost, "/v1/movies/"+f.movieID+"/reviews", body,
		map[string]string{"movie_id": f.movieID}, f.userID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first submit, got %d: %s", rr.Code, rr.Body.String())
	}

	second := setupReq(http.MethodPost, "/v1/movies/"+f.movieID+"/reviews", body,
		map[string]string{"movie_id": f.movieID}, f.userID)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, second)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "DUPLICATE_REVIEW") {
		t.Fatalf("expected DUPLICATE_REVIEW code, got %s", rr.Body.String())
	}
}

func TestSubmitReview_MovieNotFound(t *testing.T) {
	f := newFixture(t)
	handler := SubmitReview(f.reviews, f.users, nil)

	missing := uuid.NewString()
	req := setupReq(http.MethodPost, "/v1/movies/"+missing+"/reviews",
		`{"rating":3,"reviewText":"Reviewing a movie that never existed."}`,
		map[string]string{"movie_id": missing}, f.userID)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSubmitReview_MalformedMovieID(t *testing.T) {
	f := newFixture(t)
	handler := SubmitReview(f.reviews, f.users, nil)

	req := setupReq(http.MethodPost, "/v1/movies/not-a-uuid/reviews",
		`{"rating":3,"reviewText":"The id in the path is not an id."}`,
		map[string]string{"movie_id": "not-a-uuid"}, f.userID)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "INVALID_ID") {
		t.Fatalf("expected INVALID_ID code, got %s", rr.Body.String())
	}
}

func TestSubmitReview_Unauthorized(t *testing.T) {
	f := newFixture(t)
	handler := SubmitReview(f.reviews, f.users, nil)

	req := setupReq(http.MethodPost, "/v1/movies/"+f.movieID+"/reviews",
		`{"rating":3,"reviewText":"No token attached to this request."}`,
		map[string]string{"movie_id": f.movieID}, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestUpdateReview_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rev, err := f.reviews.Create(ctx, f.userID, f.movieID, 3, "It was fine, nothing more.")
	if err != nil {
		t.Fatalf("seed review: %v", err)
	}
	if _, err := f.reviews.RecomputeMovieAggregate(ctx, f.movieID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	handler := UpdateReview(f.reviews, f.users, nil)

	req := setupReq(http.MethodPut, "/v1/reviews/"+rev.ID, `{"rating":5}`,
		map[string]string{"review_id": rev.ID}, "someone-else")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rr.Code)
	}

	req = setupReq(http.MethodPut, "/v1/reviews/"+rev.ID, `{"rating":5}`,
		map[string]string{"review_id": rev.ID}, f.userID)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d: %s", rr.Code, rr.Body.String())
	}

	m, _ := f.movies.GetByID(ctx, f.movieID)
	if m.AverageRating != 5.0 {
		t.Fatalf("expected recomputed average 5.0, got %.1f", m.AverageRating)
	}
}

func TestUpdateReview_NoFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rev, _ := f.reviews.Create(ctx, f.userID, f.movieID, 3, "It was fine, nothing more.")

	handler := UpdateReview(f.reviews, f.users, nil)
	req := setupReq(http.MethodPut, "/v1/reviews/"+rev.ID, `{}`,
		map[string]string{"review_id": rev.ID}, f.userID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteReview_OwnerAndAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, _ := f.users.Create(ctx, userstore.CreateUserParams{
		Username: "other", Email: "other@example.com", PasswordHash: "x", Role: "user",
	})
	mine, _ := f.reviews.Create(ctx, f.userID, f.movieID, 5, "Still thinking about it weeks later.")
	theirs, _ := f.reviews.Create(ctx, other.ID, f.movieID, 2, "Did not land for me at all.")
	if _, err := f.reviews.RecomputeMovieAggregate(ctx, f.movieID); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	handler := DeleteReview(f.reviews, nil)

	// Non-owner without admin role: forbidden.
	req := setupReq(http.MethodDelete, "/v1/reviews/"+theirs.ID, "",
		map[string]string{"review_id": theirs.ID}, f.userID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rr.Code)
	}

	// Owner: success.
	req = setupReq(http.MethodDelete, "/v1/reviews/"+mine.ID, "",
		map[string]string{"review_id": mine.ID}, f.userID)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for owner, got %d: %s", rr.Code, rr.Body.String())
	}

	// Admin may delete any review.
	req = setupReq(http.MethodDelete, "/v1/reviews/"+theirs.ID, "",
		map[string]string{"review_id": theirs.ID}, "admin-user")
	req = req.WithContext(auth.WithRole(req.Context(), "admin"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", rr.Code, rr.Body.String())
	}

	// Every review is gone, so the aggregate resets to zero.
	m, _ := f.movies.GetByID(ctx, f.movieID)
	if m.AverageRating != 0 || m.TotalReviews != 0 {
		t.Fatalf("expected aggregate reset, got %.1f/%d", m.AverageRating, m.TotalReviews)
	}
}

func TestListMovieReviews_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		u, err := f.users.Create(ctx, userstore.CreateUserParams{
			Username: "reviewer" + string(rune('a'+i)), Email: string(rune('a'+i)) + "@example.com",
			PasswordHash: "x", Role: "user",
		})
		if err != nil {
			t.Fatalf("seed user %d: %v", i, err)
		}
		if _, err := f.reviews.Create(ctx, u.ID, f.movieID, 3+i%3, "A perfectly serviceable opinion."); err != nil {
			t.Fatalf("seed review %d: %v", i, err)
		}
	}

	handler := ListMovieReviews(f.reviews)
	req := setupReq(http.MethodGet, "/v1/movies/"+f.movieID+"/reviews?page=2&limit=2", "",
		map[string]string{"movie_id": f.movieID}, "")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Reviews    []store.ReviewWithAuthor `json:"reviews"`
		Pagination struct {
			CurrentPage int  `json:"currentPage"`
			TotalPages  int  `json:"totalPages"`
			TotalItems  int  `json:"totalItems"`
			HasNext     bool `json:"hasNext"`
		} `json:"pagination"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reviews) != 2 {
		t.Fatalf("expected 2 reviews on page 2, got %d", len(resp.Reviews))
	}
	if resp.Pagination.TotalItems != 5 || resp.Pagination.TotalPages != 3 {
		t.Fatalf("expected 5 items over 3 pages, got %d/%d",
			resp.Pagination.TotalItems, resp.Pagination.TotalPages)
	}
	if !resp.Pagination.HasNext {
		t.Fatalf("expected hasNext on page 2 of 3")
	}
}
