package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists reviews in Postgres. The (user_id, movie_id)
// unique constraint closes the duplicate-review race that an
// application-level pre-check alone would leave open.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const reviewColumns = `id::text, user_id::text, movie_id::text, rating, review_text, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, userID, movieID string, rating int, text string) (Review, error) {
	q := fmt.Sprintf(`INSERT INTO reviews (id, user_id, movie_id, rating, review_text)
	                  VALUES ($1, $2::uuid, $3::uuid, $4, $5)
	                  RETURNING %s`, reviewColumns)
	var r Review
	err := s.pool.QueryRow(ctx, q, uuid.New(), userID, movieID, rating, text).
		Scan(&r.ID, &r.UserID, &r.MovieID, &r.Rating, &r.ReviewText, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Review{}, ErrDuplicateReview
			case "23503":
				return Review{}, ErrMovieNotFound
			}
		}
		return Review{}, err
	}
	return r, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Review, error) {
	q := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1::uuid LIMIT 1`, reviewColumns)
	var r Review
	err := s.pool.QueryRow(ctx, q, id).
		Scan(&r.ID, &r.UserID, &r.MovieID, &r.Rating, &r.ReviewText, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, err
	}
	return r, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, p UpdateReviewParams) (Review, error) {
	q := fmt.Sprintf(`UPDATE reviews
	                  SET rating = COALESCE($2, rating),
	                      review_text = COALESCE($3, review_text),
	                      updated_at = now()
	                  WHERE id = $1::uuid
	                  RETURNING %s`, reviewColumns)
	var r Review
	err := s.pool.QueryRow(ctx, q, id, p.Rating, p.ReviewText).
		Scan(&r.ID, &r.UserID, &r.MovieID, &r.Rating, &r.ReviewText, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Review{}, ErrNotFound
		}
		return Review{}, err
	}
	return r, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1::uuid`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var reviewSortColumns = map[string]string{
	SortCreatedAt: "r.created_at",
	SortRating:    "r.rating",
}

func (s *PostgresStore) ListForMovie(ctx context.Context, movieID string, page, limit int, sortBy string) ([]ReviewWithAuthor, int, error) {
	page, limit, sortBy = normalizeListParams(page, limit, sortBy)

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reviews WHERE movie_id = $1::uuid`, movieID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf(`SELECT r.id::text, r.user_id::text, r.movie_id::text, r.rating, r.review_text,
	                         r.created_at, r.updated_at,
	                         u.username, u.profile_picture
	                  FROM reviews r
	                  JOIN users u ON u.id = r.user_id
	                  WHERE r.movie_id = $1::uuid
	                  ORDER BY %s DESC, r.id DESC
	                  LIMIT $2 OFFSET $3`, reviewSortColumns[sortBy])
	rows, err := s.pool.Query(ctx, q, movieID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []ReviewWithAuthor{}
	for rows.Next() {
		var ra ReviewWithAuthor
		if err := rows.Scan(&ra.ID, &ra.UserID, &ra.MovieID, &ra.Rating, &ra.ReviewText,
			&ra.CreatedAt, &ra.UpdatedAt, &ra.Author.Username, &ra.Author.ProfilePicture); err != nil {
			return nil, 0, err
		}
		ra.Author.ID = ra.UserID
		out = append(out, ra)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) ListForUser(ctx context.Context, userID string, limit int) ([]ReviewWithMovie, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	const q = `SELECT r.id::text, r.user_id::text, r.movie_id::text, r.rating, r.review_text,
	                  r.created_at, r.updated_at,
	                  m.title, m.poster_url, m.average_rating, m.release_year, m.genres, m.director
	           FROM reviews r
	           JOIN movies m ON m.id = r.movie_id
	           WHERE r.user_id = $1::uuid
	           ORDER BY r.created_at DESC, r.id DESC
	           LIMIT $2`
	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ReviewWithMovie{}
	for rows.Next() {
		var rm ReviewWithMovie
		var genresJSON []byte
		if err := rows.Scan(&rm.ID, &rm.UserID, &rm.MovieID, &rm.Rating, &rm.ReviewText,
			&rm.CreatedAt, &rm.UpdatedAt,
			&rm.Movie.Title, &rm.Movie.PosterURL, &rm.Movie.AverageRating,
			&rm.Movie.ReleaseYear, &genresJSON, &rm.Movie.Director); err != nil {
			return nil, err
		}
		rm.Movie.ID = rm.MovieID
		_ = json.Unmarshal(genresJSON, &rm.Movie.Genres)
		out = append(out, rm)
	}
	return out, rows.Err()
}

// RecomputeMovieAggregate runs as a single UPDATE so the derived fields
// are written atomically relative to the read of the review set.
func (s *PostgresStore) RecomputeMovieAggregate(ctx context.Context, movieID string) (Aggregate, error) {
	const q = `UPDATE movies SET
	             average_rating = COALESCE((SELECT ROUND(AVG(rating)::numeric, 1)
	                                        FROM reviews WHERE movie_id = $1::uuid), 0),
	             total_reviews  = (SELECT COUNT(*) FROM reviews WHERE movie_id = $1::uuid),
	             updated_at = now()
	           WHERE id = $1::uuid
	           RETURNING average_rating, total_reviews`
	var agg Aggregate
	err := s.pool.QueryRow(ctx, q, movieID).Scan(&agg.AverageRating, &agg.TotalReviews)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Aggregate{}, ErrMovieNotFound
		}
		return Aggregate{}, err
	}
	return agg, nil
}
