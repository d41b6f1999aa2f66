package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	moviestore "github.com/example/movie-platform/internal/movies/store"
)

// PostgresStore keeps watchlist entries in their own table; the
// (user_id, movie_id) primary key rejects duplicates and the identity
// position column preserves insertion order.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Add(ctx context.Context, userID, movieID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO watchlist_items (user_id, movie_id) VALUES ($1::uuid, $2::uuid)`,
		userID, movieID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrAlreadyInList
			case "23503":
				return ErrMovieNotFound
			}
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Remove(ctx context.Context, userID, movieID string) error {
	// Removing an absent entry is a no-op success.
	_, err := s.pool.Exec(ctx,
		`DELETE FROM watchlist_items WHERE user_id = $1::uuid AND movie_id = $2::uuid`,
		userID, movieID)
	return err
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]moviestore.Summary, error) {
	const q = `SELECT m.id::text, m.title, m.poster_url, m.average_rating, m.release_year, m.genres, m.director
	           FROM watchlist_items w
	           JOIN movies m ON m.id = w.movie_id
	           WHERE w.user_id = $1::uuid
	           ORDER BY w.position ASC`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []moviestore.Summary{}
	for rows.Next() {
		var sm moviestore.Summary
		var genresJSON []byte
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.PosterURL, &sm.AverageRating,
			&sm.ReleaseYear, &genresJSON, &sm.Director); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(genresJSON, &sm.Genres)
		out = append(out, sm)
	}
	return out, rows.Err()
}
