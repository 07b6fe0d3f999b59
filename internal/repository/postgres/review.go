package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/repository"
)

type reviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) repository.ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	rv.CreatedAt = time.Now().UTC()
	query := `INSERT INTO reviews (rental_id, reviewer_id, reviewee_id, item_id, rating, comment, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, rv.RentalID, rv.ReviewerID, rv.RevieweeID, rv.ItemID, rv.Rating, rv.Comment, rv.CreatedAt).
		Scan(&rv.ID)
	return mapError(err, "review")
}

func reviewWhere(f domain.ReviewFilter) (string, []any) {
	where := ` WHERE 1=1`
	var args []any
	if f.RevieweeID != "" {
		args = append(args, f.RevieweeID)
		where += fmt.Sprintf(" AND reviewee_id = $%d", len(args))
	}
	if f.ItemID != "" {
		args = append(args, f.ItemID)
		where += fmt.Sprintf(" AND item_id = $%d", len(args))
	}
	if f.RentalID != "" {
		args = append(args, f.RentalID)
		where += fmt.Sprintf(" AND rental_id = $%d", len(args))
	}
	return where, args
}

func (r *reviewRepository) List(ctx context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	where, args := reviewWhere(f)
	query := `SELECT id, rental_id, reviewer_id, reviewee_id, item_id, rating, COALESCE(comment, ''), created_at
	          FROM reviews` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.RentalID, &rv.ReviewerID, &rv.RevieweeID, &rv.ItemID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// Stats returns count, mean rating and the 1..5 distribution.
func (r *reviewRepository) Stats(ctx context.Context, f domain.ReviewFilter) (*domain.ReviewStats, error) {
	where, args := reviewWhere(f)
	query := `SELECT rating, count(*) FROM reviews` + where + ` GROUP BY rating`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.ReviewStats{Distribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return nil, err
		}
		stats.Distribution[rating] = n
		stats.Count += n
		sum += rating * n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if stats.Count > 0 {
		stats.Average = float64(sum) / float64(stats.Count)
	}
	return stats, nil
}
