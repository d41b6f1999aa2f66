package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the catalog in Postgres. The listing relies on
// the movies_search_idx full-text index and movies_year_rating_idx; see
// db/schema.sql.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const movieColumns = `id::text, title, genres, release_year, director, cast_members, synopsis,
	poster_url, trailer_url, duration_minutes, language, average_rating, total_reviews,
	featured, trending, created_at, updated_at`

var sortColumns = map[string]string{
	SortCreatedAt:     "created_at",
	SortTitle:         "title",
	SortReleaseYear:   "release_year",
	SortAverageRating: "average_rating",
}

func (s *PostgresStore) Create(ctx context.Context, p CreateMovieParams) (Movie, error) {
	genresJSON, _ := json.Marshal(p.Genres)
	castJSON, _ := json.Marshal(p.Cast)
	if p.Cast == nil {
		castJSON = []byte("[]")
	}

	q := fmt.Sprintf(`INSERT INTO movies
	  (id, title, genres, release_year, director, cast_members, synopsis,
	   poster_url, trailer_url, duration_minutes, language, featured, trending)
	  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	  RETURNING %s`, movieColumns)

	row := s.pool.QueryRow(ctx, q, uuid.New(), p.Title, genresJSON, p.ReleaseYear, p.Director,
		castJSON, p.Synopsis, p.PosterURL, p.TrailerURL, p.Duration, p.Language, p.Featured, p.Trending)
	return scanMovie(row)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Movie, error) {
	q := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1::uuid LIMIT 1`, movieColumns)
	m, err := scanMovie(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Movie{}, ErrNotFound
		}
		return Movie{}, err
	}
	return m, nil
}

func (s *PostgresStore) List(ctx context.Context, q ListQuery) ([]Movie, int, error) {
	q = q.normalize()

	where, args := buildFilters(q)

	countSQL := "SELECT COUNT(*) FROM movies" + where
	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := sortColumns[q.SortBy]
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	listSQL := fmt.Sprintf("SELECT %s FROM movies%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		movieColumns, where, order, dir, dir, len(args)+1, len(args)+2)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	rows, err := s.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	movies := []Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		movies = append(movies, m)
	}
	return movies, total, rows.Err()
}

// buildFilters translates the non-empty filters of a normalized query
// into a WHERE clause. Dropped filters simply contribute nothing.
func buildFilters(q ListQuery) (string, []any) {
	var conds []string
	var args []any

	if q.Search != "" {
		args = append(args, q.Search)
		conds = append(conds, fmt.Sprintf("search_vector @@ plainto_tsquery('english', $%d)", len(args)))
	}
	if len(q.Genres) > 0 {
		args = append(args, q.Genres)
		conds = append(conds, fmt.Sprintf("genres ?| $%d::text[]", len(args)))
	}
	if q.Year != 0 {
		args = append(args, q.Year)
		conds = append(conds, fmt.Sprintf("release_year = $%d", len(args)))
	}
	if q.MinRating != nil {
		args = append(args, *q.MinRating)
		conds = append(conds, fmt.Sprintf("average_rating >= $%d", len(args)))
	}
	if q.MaxRating != nil {
		args = append(args, *q.MaxRating)
		conds = append(conds, fmt.Sprintf("average_rating <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *PostgresStore) Featured(ctx context.Context, limit int) ([]Movie, error) {
	return s.flagged(ctx, "featured", limit)
}

func (s *PostgresStore) Trending(ctx context.Context, limit int) ([]Movie, error) {
	return s.flagged(ctx, "trending", limit)
}

func (s *PostgresStore) flagged(ctx context.Context, flag string, limit int) ([]Movie, error) {
	if limit <= 0 {
		limit = 6
	}
	q := fmt.Sprintf("SELECT %s FROM movies WHERE %s ORDER BY created_at DESC LIMIT $1", movieColumns, flag)
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func scanMovie(row pgx.Row) (Movie, error) {
	var m Movie
	var genresJSON, castJSON []byte
	err := row.Scan(&m.ID, &m.Title, &genresJSON, &m.ReleaseYear, &m.Director, &castJSON,
		&m.Synopsis, &m.PosterURL, &m.TrailerURL, &m.Duration, &m.Language,
		&m.AverageRating, &m.TotalReviews, &m.Featured, &m.Trending, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Movie{}, err
	}
	_ = json.Unmarshal(genresJSON, &m.Genres)
	_ = json.Unmarshal(castJSON, &m.Cast)
	return m, nil
}
