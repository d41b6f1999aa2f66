// Package handlers implements account registration, login and profile
// endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/validate"
	"github.com/example/movie-platform/internal/users/store"
	"github.com/example/movie-platform/internal/users/tokens"
)

var payloadValidator = validate.New()

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,password"`
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    store.User `json:"user"`
}

// Register handles POST /v1/auth/register.
func Register(us store.Store, ts tokens.Service, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if err := payloadValidator.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION", validate.Message(err), "", validate.Details(err))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			api.Internal(w, "")
			return
		}

		u, err := us.Create(r.Context(), store.CreateUserParams{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         "user",
		})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrEmailTaken):
				api.Conflict(w, "EMAIL_TAKEN", "Email already registered", "", nil)
			case errors.Is(err, store.ErrUsernameTaken):
				api.Conflict(w, "USERNAME_TAKEN", "Username already taken", "", nil)
			default:
				api.Internal(w, "")
			}
			return
		}

		token, _, err := ts.NewAccessToken(u.ID, u.Role, time.Now())
		if err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectAuthRegistered, "user_registered", u.ID, nil)

		api.WriteJSON(w, http.StatusCreated, authResponse{
			Message: "Registration successful",
			Token:   token,
			User:    u,
		})
	}
}

// Login handles POST /v1/auth/login. The login field accepts either the
// username or the email address. Unknown accounts and wrong passwords
// produce the same response.
func Login(us store.Store, ts tokens.Service, events *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "invalid JSON", "", nil)
			return
		}
		if err := payloadValidator.Struct(req); err != nil {
			api.BadRequest(w, "VALIDATION", validate.Message(err), "", validate.Details(err))
			return
		}

		u, err := us.FindByLogin(r.Context(), req.Login)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.Unauthorized(w, "AUTH_INVALID_CREDENTIALS", "Invalid credentials", "")
				return
			}
			api.Internal(w, "")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
			api.Unauthorized(w, "AUTH_INVALID_CREDENTIALS", "Invalid credentials", "")
			return
		}

		token, _, err := ts.NewAccessToken(u.ID, u.Role, time.Now())
		if err != nil {
			api.Internal(w, "")
			return
		}

		events.Publish(analytics.SubjectAuthLoggedIn, "user_logged_in", u.ID, nil)

		api.WriteJSON(w, http.StatusOK, authResponse{
			Message: "Login successful",
			Token:   token,
			User:    u,
		})
	}
}

// Me handles GET /v1/auth/me, returning the authenticated account.
func Me(us store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			api.Unauthorized(w, "UNAUTHORIZED", "authentication required", "")
			return
		}
		u, err := us.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "USER_NOT_FOUND", "User not found", "")
				return
			}
			api.Internal(w, "")
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
	}
}
