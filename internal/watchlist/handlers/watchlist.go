// Package handlers implements the per-user watchlist endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/validate"
	"github.com/example/movie-platform/internal/watchlist/store"
)

var payloadValidator = validate.New()

type addToWatchlistRequest struct {
	MovieID string `json:"movieId" validate:"required,uuid4"`
}

// AddToWatchlist handles POST /v1/users/{user_id}/watchlist.
func AddToWatchlist(ws store.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		if pathUser := chi.URLParam(r, "user_id"); pathUser != userID {
			api.Forbidden(w, "FORBIDDEN", "You can only modify your own watchlist", "")
			return
		}

		var req addToWatchlistRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if err := payloadValidator.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION", validate.Message(err), "", validate.Details(err))
			return
		}

		if err := ws.Add(r.Context(), userID, req.MovieID); err != nil {
			switch {
			case errors.Is(err, store.ErrMovieNotFound):
				api.NotFound(w, "MOVIE_NOT_FOUND", "Movie not found", "")
			case errors.Is(err, store.ErrAlreadyInList):
				api.Conflict(w, "ALREADY_IN_WATCHLIST", "Movie already in watchlist", "", nil)
			default:
				api.Internal(w, "")
			}
			return
		}

		events.Publish(analytics.SubjectWatchlistAdded, "watchlist_added", userID,
			map[string]any{"movie_id": req.MovieID})

		api.WriteJSON(w, http.StatusOK, map[string]any{"message": "Movie added to watchlist"})
	}
}

// RemoveFromWatchlist handles DELETE /v1/users/{user_id}/watchlist/{movie_id}.
// Removing a movie that is not on the list succeeds quietly.
func RemoveFromWatchlist(ws store.Store, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		if pathUser := chi.URLParam(r, "user_id"); pathUser != userID {
			api.Forbidden(w, "FORBIDDEN", "You can only modify your own watchlist", "")
			return
		}

		movieID := strings.TrimSpace(chi.URLParam(r, "movie_id"))
		if !validate.UUID(movieID) {
			api.BadRequest(w, "INVALID_ID", "movie_id must be a valid id", "", nil)
			return
		}

		if err := ws.Remove(r.Context(), userID, movieID); err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectWatchlistRemoved, "watchlist_removed", userID,
			map[string]any{"movie_id": movieID})

		api.WriteJSON(w, http.StatusOK, map[string]any{"message": "Movie removed from watchlist"})
	}
}

// GetWatchlist handles GET /v1/users/{user_id}/watchlist, returning the
// saved movies in the order they were added.
func GetWatchlist(ws store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		if pathUser := chi.URLParam(r, "user_id"); pathUser != userID {
			api.Forbidden(w, "FORBIDDEN", "You can only view your own watchlist", "")
			return
		}

		items, err := ws.List(r.Context(), userID)
		if err != nil {
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"watchlist": items})
	}
}
