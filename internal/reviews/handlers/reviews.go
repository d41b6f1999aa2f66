// Package handlers implements the review endpoints: submit, update,
// delete and the per-movie listing. Every mutation finishes with a
// rating recompute for the affected movie.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/validate"
	"github.com/example/movie-platform/internal/reviews/store"
	userstore "github.com/example/movie-platform/internal/users/store"
)

var payloadValidator = validate.New()

type submitReviewRequest struct {
	Rating     int    `json:"rating" validate:"required,gte=1,lte=5"`
	ReviewText string `json:"reviewText" validate:"required,min=10,max=2000"`
}

type updateReviewRequest struct {
	Rating     *int    `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	ReviewText *string `json:"reviewText,omitempty" validate:"omitempty,min=10,max=2000"`
}

type reviewResponse struct {
	Message string `json:"message"`
	Review  any    `json:"review"`
}

type listReviewsResponse struct {
	Reviews    []store.ReviewWithAuthor `json:"reviews"`
	Pagination api.Pagination           `json:"pagination"`
}

// SubmitReview handles POST /v1/movies/{movie_id}/reviews
func SubmitReview(rs store.Store, us userstore.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		movieID := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if !validate.UUID(movieID) {
			api.BadRequest(w, "INVALID_ID", "movie_id must be a valid id", "", nil)
			return
		}

		var req submitReviewRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if err := payloadValidator.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION", validate.Message(err), "", validate.Details(err))
			return
		}

		created, err := rs.Create(r.Context(), userID, movieID, req.Rating, req.ReviewText)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrMovieNotFound):
				api.NotFound(w, "MOVIE_NOT_FOUND", "Movie not found", "")
			case errors.Is(err, store.ErrDuplicateReview):
				api.Conflict(w, "DUPLICATE_REVIEW", "You have already reviewed this movie", "", nil)
			default:
				api.Internal(w, "")
			}
			return
		}
		if _, err := rs.RecomputeMovieAggregate(r.Context(), movieID); err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectReviewSubmitted, "review_submitted", userID,
			map[string]any{"movie_id": movieID, "rating": req.Rating})

		api.WriteJSON(w, http.StatusCreated, reviewResponse{
			Message: "Review submitted successfully",
			Review:  store.ReviewWithAuthor{Review: created, Author: author(r, us, userID)},
		})
	}
}

// UpdateReview handles PUT /v1/reviews/{review_id}
func UpdateReview(rs store.Store, us userstore.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		reviewID := strings.TrimSpace(chi.URLParam(r, "review_id"))
		if !validate.UUID(reviewID) {
			api.BadRequest(w, "INVALID_ID", "review_id must be a valid id", "", nil)
			return
		}

		var req updateReviewRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if req.Rating == nil && req.ReviewText == nil {
			api.BadRequest(w, "VALIDATION", "at least one of rating or reviewText is required", "", nil)
			return
		}
		if err := payloadValidator.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION", validate.Message(err), "", validate.Details(err))
			return
		}

		existing, err := rs.GetByID(r.Context(), reviewID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "REVIEW_NOT_FOUND", "Review not found", "")
				return
			}
			api.Internal(w, "")
			return
		}
		if existing.UserID != userID {
			api.Forbidden(w, "FORBIDDEN", "You can only update your own reviews", "")
			return
		}

		updated, err := rs.Update(r.Context(), reviewID, store.UpdateReviewParams{
			Rating:     req.Rating,
			ReviewText: req.ReviewText,
		})
		if err != nil {
			api.Internal(w, "")
			return
		}
		if _, err := rs.RecomputeMovieAggregate(r.Context(), updated.MovieID); err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectReviewUpdated, "review_updated", userID,
			map[string]any{"review_id": reviewID, "movie_id": updated.MovieID})

		api.WriteJSON(w, http.StatusOK, reviewResponse{
			Message: "Review updated successfully",
			Review:  store.ReviewWithAuthor{Review: updated, Author: author(r, us, userID)},
		})
	}
}

// DeleteReview handles DELETE /v1/reviews/{review_id}. Admins may delete
// any review; users only their own.
func DeleteReview(rs store.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok || userID == "" {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		reviewID := strings.TrimSpace(chi.URLParam(r, "review_id"))
		if !validate.UUID(reviewID) {
			api.BadRequest(w, "INVALID_ID", "review_id must be a valid id", "", nil)
			return
		}

		existing, err := rs.GetByID(r.Context(), reviewID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "REVIEW_NOT_FOUND", "Review not found", "")
				return
			}
			api.Internal(w, "")
			return
		}
		role, _ := auth.RoleFromContext(r.Context())
		if existing.UserID != userID && !strings.EqualFold(role, "admin") {
			api.Forbidden(w, "FORBIDDEN", "You can only delete your own reviews", "")
			return
		}

		if err := rs.Delete(r.Context(), reviewID); err != nil {
			api.Internal(w, "")
			return
		}
		if _, err := rs.RecomputeMovieAggregate(r.Context(), existing.MovieID); err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectReviewDeleted, "review_deleted", userID,
			map[string]any{"review_id": reviewID, "movie_id": existing.MovieID})

		api.WriteJSON(w, http.StatusOK, map[string]string{"message": "Review deleted successfully"})
	}
}

// ListMovieReviews handles GET /v1/movies/{movie_id}/reviews
func ListMovieReviews(rs store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		movieID := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if !validate.UUID(movieID) {
			api.BadRequest(w, "INVALID_ID", "movie_id must be a valid id", "", nil)
			return
		}

		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 10)
		if limit > 50 {
			limit = 50
		}
		sortBy := strings.TrimSpace(r.URL.Query().Get("sortBy"))

		items, total, err := rs.ListForMovie(r.Context(), movieID, page, limit, sortBy)
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, listReviewsResponse{
			Reviews:    items,
			Pagination: api.NewPagination(page, limit, total),
		})
	}
}

func author(r *http.Request, us userstore.Store, userID string) store.Author {
	u, err := us.GetPublic(r.Context(), userID)
	if err != nil {
		return store.Author{ID: userID}
	}
	return store.Author{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
