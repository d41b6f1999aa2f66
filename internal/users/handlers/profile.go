package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/validate"
	reviewstore "github.com/example/movie-platform/internal/reviews/store"
	"github.com/example/movie-platform/internal/users/store"
)

type updateProfileRequest struct {
	Username       *string `json:"username" validate:"omitempty,min=3,max=20,username"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,url"`
}

// GetProfile handles GET /v1/users/{user_id}: the public profile plus
// the user's ten most recent reviews. No authentication required.
func GetProfile(us store.Store, rs reviewstore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "user_id"))
		if !validate.UUID(userID) {
			api.BadRequest(w, "INVALID_ID", "user_id must be a valid id", "", nil)
			return
		}

		u, err := us.GetPublic(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "USER_NOT_FOUND", "User not found", "")
				return
			}
			api.Internal(w, "")
			return
		}

		reviews, err := rs.ListForUser(r.Context(), userID, 10)
		if err != nil {
			api.Internal(w, "")
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]any{"user": u, "reviews": reviews})
	}
}

// UpdateProfile handles PATCH /v1/users/{user_id}. Users can only edit
// their own profile.
func UpdateProfile(us store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		if pathUser := chi.URLParam(r, "user_id"); pathUser != userID {
			api.Forbidden(w, "FORBIDDEN", "You can only update your own profile", "")
			return
		}

		var req updateProfileRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if req.Username == nil && req.ProfilePicture == nil {
			api.BadRequest(w, "VALIDATION", "at least one field is required", "", nil)
			return
		}
		if err := payloadValidator.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION", validate.Message(err), "", validate.Details(err))
			return
		}

		u, err := us.UpdateProfile(r.Context(), userID, store.UpdateProfileParams{
			Username:       req.Username,
			ProfilePicture: req.ProfilePicture,
		})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "USER_NOT_FOUND", "User not found", "")
			case errors.Is(err, store.ErrUsernameTaken):
				api.Conflict(w, "USERNAME_TAKEN", "Username already taken", "", nil)
			default:
				api.Internal(w, "")
			}
			return
		}

		api.WriteJSON(w, http.StatusOK, map[string]any{
			"message": "Profile updated successfully",
			"user":    u,
		})
	}
}
