// Package handlers implements the catalog endpoints: the filtered
// listing, movie details, featured/trending shelves and admin creation.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/movies/store"
	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/validate"
	reviewstore "github.com/example/movie-platform/internal/reviews/store"
)

var payloadValidator = validate.New()

type castMemberRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Character string `json:"character,omitempty" validate:"max=100"`
}

type createMovieRequest struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Genre       []string            `json:"genre" validate:"required,min=1,dive,required"`
	ReleaseYear int                 `json:"releaseYear" validate:"required,gte=1888"`
	Director    string              `json:"director" validate:"required,max=100"`
	Cast        []castMemberRequest `json:"cast" validate:"dive"`
	Synopsis    string              `json:"synopsis" validate:"required,max=2000"`
	PosterURL   string              `json:"posterUrl" validate:"required,url"`
	TrailerURL  string              `json:"trailerUrl,omitempty" validate:"omitempty,url"`
	Duration    int                 `json:"duration" validate:"required,gt=0"`
	Language    string              `json:"language" validate:"required"`
	Featured    bool                `json:"featured"`
	Trending    bool                `json:"trending"`
}

type listMoviesResponse struct {
	Movies     []store.Movie  `json:"movies"`
	Pagination api.Pagination `json:"pagination"`
}

// ListMovies handles GET /v1/movies with the filter/sort/pagination
// parameters of the catalog query builder.
func ListMovies(ms store.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := parseListQuery(r)

		items, total, err := ms.List(r.Context(), q)
		if err != nil {
			api.Internal(w, "")
			return
		}

		if q.Search != "" {
			events.Publish(analytics.SubjectMovieListQueried, "movie_list_queried", "",
				map[string]any{"search": q.Search})
		}

		api.WriteJSON(w, http.StatusOK, listMoviesResponse{
			Movies:     items,
			Pagination: api.NewPagination(pageOf(q), limitOf(q), total),
		})
	}
}

// parseListQuery maps wire parameters onto a ListQuery, dropping empty
// or malformed filter values instead of passing them through.
func parseListQuery(r *http.Request) store.ListQuery {
	params := r.URL.Query()
	q := store.ListQuery{
		Search:    strings.TrimSpace(params.Get("search")),
		SortBy:    strings.TrimSpace(params.Get("sortBy")),
		SortOrder: strings.TrimSpace(params.Get("sortOrder")),
	}
	if genre := strings.TrimSpace(params.Get("genre")); genre != "" {
		q.Genres = strings.Split(genre, ",")
	}
	if year, err := strconv.Atoi(strings.TrimSpace(params.Get("year"))); err == nil && year > 0 {
		q.Year = year
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(params.Get("minRating")), 64); err == nil {
		q.MinRating = &v
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(params.Get("maxRating")), 64); err == nil {
		q.MaxRating = &v
	}
	if page, err := strconv.Atoi(strings.TrimSpace(params.Get("page"))); err == nil {
		q.Page = page
	}
	if limit, err := strconv.Atoi(strings.TrimSpace(params.Get("limit"))); err == nil {
		q.Limit = limit
	}
	return q
}

func pageOf(q store.ListQuery) int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

func limitOf(q store.ListQuery) int {
	if q.Limit <= 0 {
		return store.DefaultPageSize
	}
	if q.Limit > store.MaxPageSize {
		return store.MaxPageSize
	}
	return q.Limit
}

// GetMovie handles GET /v1/movies/{movie_id}: the movie plus its ten
// most recent reviews.
func GetMovie(ms store.Store, rs reviewstore.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		movieID := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if !validate.UUID(movieID) {
			api.BadRequest(w, "INVALID_ID", "movie_id must be a valid id", "", nil)
			return
		}

		m, err := ms.GetByID(r.Context(), movieID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "MOVIE_NOT_FOUND", "Movie not found", "")
				return
			}
			api.Internal(w, "")
			return
		}

		recent, _, err := rs.ListForMovie(r.Context(), movieID, 1, 10, reviewstore.SortCreatedAt)
		if err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectMovieViewed, "movie_viewed", "",
			map[string]any{"movie_id": movieID})

		api.WriteJSON(w, http.StatusOK, map[string]any{"movie": m, "reviews": recent})
	}
}

// CreateMovie handles POST /v1/movies. Admin-only; the route is wrapped
// in auth.RequireAdmin.
func CreateMovie(ms store.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMovieRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if err := payloadValidator.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION", validate.Message(err), "", validate.Details(err))
			return
		}
		// Release years run up to five years out; the bound moves with
		// the clock so it cannot live in a struct tag.
		if maxYear := time.Now().Year() + 5; req.ReleaseYear > maxYear {
			api.BadRequest(w, "VALIDATION", fmt.Sprintf("releaseYear cannot exceed %d", maxYear), "",
				map[string]any{"releaseYear": fmt.Sprintf("cannot exceed %d", maxYear)})
			return
		}

		cast := make([]store.CastMember, 0, len(req.Cast))
		for _, c := range req.Cast {
			cast = append(cast, store.CastMember{Name: c.Name, Character: c.Character})
		}

		m, err := ms.Create(r.Context(), store.CreateMovieParams{
			Title:       req.Title,
			Genres:      req.Genre,
			ReleaseYear: req.ReleaseYear,
			Director:    req.Director,
			Cast:        cast,
			Synopsis:    req.Synopsis,
			PosterURL:   req.PosterURL,
			TrailerURL:  req.TrailerURL,
			Duration:    req.Duration,
			Language:    req.Language,
			Featured:    req.Featured,
			Trending:    req.Trending,
		})
		if err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectMovieCreated, "movie_created", "",
			map[string]any{"movie_id": m.ID, "title": m.Title})

		api.WriteJSON(w, http.StatusCreated, map[string]any{
			"message": "Movie added successfully",
			"movie":   m,
		})
	}
}

// FeaturedMovies handles GET /v1/movies/featured: the featured and
// trending shelves for the landing page.
func FeaturedMovies(ms store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		featured, err := ms.Featured(r.Context(), 6)
		if err != nil {
			api.Internal(w, "")
			return
		}
		trending, err := ms.Trending(r.Context(), 6)
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"featured": featured, "trending": trending})
	}
}
