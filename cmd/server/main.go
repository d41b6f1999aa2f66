package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	moviehandlers "github.com/example/movie-platform/internal/movies/handlers"
	moviestore "github.com/example/movie-platform/internal/movies/store"
	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/config"
	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/platform/logging"
	"github.com/example/movie-platform/internal/platform/natsconn"
	"github.com/example/movie-platform/internal/platform/run"
	reviewhandlers "github.com/example/movie-platform/internal/reviews/handlers"
	reviewstore "github.com/example/movie-platform/internal/reviews/store"
	userhandlers "github.com/example/movie-platform/internal/users/handlers"
	userstore "github.com/example/movie-platform/internal/users/store"
	"github.com/example/movie-platform/internal/users/tokens"
	watchlisthandlers "github.com/example/movie-platform/internal/watchlist/handlers"
	watchliststore "github.com/example/movie-platform/internal/watchlist/store"
)

type stores struct {
	users     userstore.Store
	movies    moviestore.Store
	reviews   reviewstore.Store
	watchlist watchliststore.Store
	pool      *pgxpool.Pool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	st := initStores(cfg, log)
	if st.pool != nil {
		defer st.pool.Close()
	}

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}
	tokenSvc := tokens.Service{Secret: []byte(cfg.JWTSecret)}

	// Analytics events are fire-and-forget; the API runs without NATS.
	var events *analytics.Publisher
	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Warn("nats unavailable, analytics events disabled", zap.Error(err))
	} else {
		defer nc.Close()
		js, err := nc.JetStream()
		if err != nil {
			log.Warn("jetstream unavailable, analytics events disabled", zap.Error(err))
		} else {
			events = analytics.New(js, log)
		}
	}

	r := chi.NewRouter()
	routerCfg := httpserver.RouterConfig{}
	if st.pool != nil {
		pool := st.pool
		routerCfg.ReadyFunc = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Ping(ctx)
		}
	}
	httpserver.SetupRouter(r, routerCfg)

	// Public routes.
	r.Post("/v1/auth/register", userhandlers.Register(st.users, tokenSvc, events))
	r.Post("/v1/auth/login", userhandlers.Login(st.users, tokenSvc, events))
	r.Get("/v1/movies", moviehandlers.ListMovies(st.movies, events))
	r.Get("/v1/movies/featured", moviehandlers.FeaturedMovies(st.movies))
	r.Get("/v1/movies/{movie_id}", moviehandlers.GetMovie(st.movies, st.reviews, events))
	r.Get("/v1/movies/{movie_id}/reviews", reviewhandlers.ListMovieReviews(st.reviews))
	r.Get("/v1/users/{user_id}", userhandlers.GetProfile(st.users, st.reviews))

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Get("/v1/auth/me", userhandlers.Me(st.users))
		r.Patch("/v1/users/{user_id}", userhandlers.UpdateProfile(st.users))
		r.Post("/v1/movies/{movie_id}/reviews", reviewhandlers.SubmitReview(st.reviews, st.users, events))
		r.Put("/v1/reviews/{review_id}", reviewhandlers.UpdateReview(st.reviews, st.users, events))
		r.Delete("/v1/reviews/{review_id}", reviewhandlers.DeleteReview(st.reviews, events))
		r.Get("/v1/users/{user_id}/watchlist", watchlisthandlers.GetWatchlist(st.watchlist))
		r.Post("/v1/users/{user_id}/watchlist", watchlisthandlers.AddToWatchlist(st.watchlist, events))
		r.Delete("/v1/users/{user_id}/watchlist/{movie_id}", watchlisthandlers.RemoveFromWatchlist(st.watchlist, events))
	})

	// Admin routes.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Use(auth.RequireAdmin)
		r.Post("/v1/movies", moviehandlers.CreateMovie(st.movies, events))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStores selects the storage backend. In production (APP_ENV=production)
// Postgres is required and the process terminates without it. In development
// a missing or unreachable DATABASE_URL falls back to in-memory stores.
func initStores(cfg config.AppConfig, log *zap.Logger) stores {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn != "" {
		pool, err := db.Open(context.Background())
		if err == nil {
			log.Info("using postgres stores")
			return stores{
				users:     userstore.NewPostgresStore(pool),
				movies:    moviestore.NewPostgresStore(pool),
				reviews:   reviewstore.NewPostgresStore(pool),
				watchlist: watchliststore.NewPostgresStore(pool),
				pool:      pool,
			}
		}
		if cfg.IsProduction() {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory stores", zap.Error(err))
	} else if cfg.IsProduction() {
		log.Error("DATABASE_URL is required in production")
		_ = log.Sync()
		os.Exit(1)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores (development only)")
	}

	movies := moviestore.NewInMemoryStore()
	users := userstore.NewInMemoryStore()
	return stores{
		users:     users,
		movies:    movies,
		reviews:   reviewstore.NewInMemoryStore(movies, users),
		watchlist: watchliststore.NewInMemoryStore(movies),
	}
}
