// Command seed populates a fresh database with an admin account, a few
// demo users, a starter catalog and reviews. It is idempotent only on an
// empty database; rerunning it against seeded data fails on the unique
// constraints.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	moviestore "github.com/example/movie-platform/internal/movies/store"
	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/logging"
	reviewstore "github.com/example/movie-platform/internal/reviews/store"
	userstore "github.com/example/movie-platform/internal/users/store"
)

func main() {
	log, err := logging.New("info")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.Open(ctx)
	if err != nil {
		log.Error("open database", zap.Error(err))
		os.Exit(1)
	}
	defer pool.Close()

	users := userstore.NewPostgresStore(pool)
	movies := moviestore.NewPostgresStore(pool)
	reviews := reviewstore.NewPostgresStore(pool)

	if err := seed(ctx, users, movies, reviews, log); err != nil {
		log.Error("seed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("seed complete")
}

func seed(ctx context.Context, users userstore.Store, movies moviestore.Store, reviews reviewstore.Store, log *zap.Logger) error {
	admin, err := createUser(ctx, users, "admin", "admin@example.com", adminPassword(), "admin")
	if err != nil {
		return err
	}
	log.Info("created admin", zap.String("id", admin.ID))

	demoUsers := make([]userstore.User, 0, 3)
	for _, u := range []struct{ name, email string }{
		{"cinephile", "cinephile@example.com"},
		{"weekendwatcher", "weekend@example.com"},
		{"noirfan", "noir@example.com"},
	} {
		created, err := createUser(ctx, users, u.name, u.email, "Password1", "user")
		if err != nil {
			return err
		}
		demoUsers = append(demoUsers, created)
	}

	created := make([]moviestore.Movie, 0, len(catalog))
	for _, p := range catalog {
		m, err := movies.Create(ctx, p)
		if err != nil {
			return err
		}
		created = append(created, m)
	}
	log.Info("created movies", zap.Int("count", len(created)))

	// A spread of ratings so the aggregates are non-trivial.
	seedReviews := []struct {
		user   int
		movie  int
		rating int
		text   string
	}{
		{0, 0, 5, "The diner scene alone earns this five stars."},
		{1, 0, 4, "Long, but it never feels long. Great ensemble."},
		{2, 0, 5, "The standard every crime film since has chased."},
		{0, 1, 5, "I find something new in it on every rewatch."},
		{1, 1, 4, "Gorgeous, strange and quietly devastating."},
		{2, 2, 3, "Clever premise that runs out of places to go."},
	}
	for _, sr := range seedReviews {
		if _, err := reviews.Create(ctx, demoUsers[sr.user].ID, created[sr.movie].ID, sr.rating, sr.text); err != nil {
			return err
		}
		if _, err := reviews.RecomputeMovieAggregate(ctx, created[sr.movie].ID); err != nil {
			return err
		}
	}
	log.Info("created reviews", zap.Int("count", len(seedReviews)))
	return nil
}

func createUser(ctx context.Context, users userstore.Store, username, email, password, role string) (userstore.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return userstore.User{}, err
	}
	u, err := users.Create(ctx, userstore.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrEmailTaken) || errors.Is(err, userstore.ErrUsernameTaken) {
			return userstore.User{}, errors.New("database already seeded: " + username + " exists")
		}
		return userstore.User{}, err
	}
	return u, nil
}

func adminPassword() string {
	if p := os.Getenv("SEED_ADMIN_PASSWORD"); p != "" {
		return p
	}
	return "ChangeMe1"
}

var catalog = []moviestore.CreateMovieParams{
	{
		Title:       "Heat",
		Genres:      []string{"Crime", "Thriller"},
		ReleaseYear: 1995,
		Director:    "Michael Mann",
		Cast: []moviestore.CastMember{
			{Name: "Al Pacino", Character: "Vincent Hanna"},
			{Name: "Robert De Niro", Character: "Neil McCauley"},
		},
		Synopsis:  "A meticulous thief and the detective obsessed with catching him circle each other across Los Angeles.",
		PosterURL: "https://img.example.com/posters/heat.jpg",
		Duration:  170,
		Language:  "English",
		Trending:  true,
	},
	{
		Title:       "Spirited Away",
		Genres:      []string{"Animation", "Fantasy"},
		ReleaseYear: 2001,
		Director:    "Hayao Miyazaki",
		Cast: []moviestore.CastMember{
			{Name: "Rumi Hiiragi", Character: "Chihiro"},
		},
		Synopsis:  "A ten-year-old girl must work in a bathhouse for spirits to free her parents from a curse.",
		PosterURL: "https://img.example.com/posters/spirited-away.jpg",
		Duration:  125,
		Language:  "Japanese",
		Featured:  true,
	},
	{
		Title:       "Coherence",
		Genres:      []string{"Sci-Fi", "Thriller"},
		ReleaseYear: 2013,
		Director:    "James Ward Byrkit",
		Synopsis:    "A dinner party unravels as a passing comet fractures reality into competing versions of the same night.",
		PosterURL:   "https://img.example.com/posters/coherence.jpg",
		Duration:    89,
		Language:    "English",
	},
	{
		Title:       "The Conversation",
		Genres:      []string{"Drama", "Mystery"},
		ReleaseYear: 1974,
		Director:    "Francis Ford Coppola",
		Cast: []moviestore.CastMember{
			{Name: "Gene Hackman", Character: "Harry Caul"},
		},
		Synopsis:  "A surveillance expert becomes convinced the couple he recorded are about to be murdered.",
		PosterURL: "https://img.example.com/posters/the-conversation.jpg",
		Duration:  113,
		Language:  "English",
		Featured:  true,
	},
}
