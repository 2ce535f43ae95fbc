package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkrylova/shopcore/internal/domain"
)

type reviewRepository struct {
	db *sql.DB
}

// NewReviewRepository создаёт PostgreSQL-реализацию ReviewRepository.
// Уникальность пары (user_id, product_id) обеспечивается constraint'ом в схеме.
func NewReviewRepository(store *Store) domain.ReviewRepository {
	return &reviewRepository{db: store.DB()}
}

func (r *reviewRepository) Create(review domain.Review) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (
			id, user_id, product_id, order_id, rating, comment, helpful, verified, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		review.ID, review.UserID, review.ProductID, review.OrderID,
		review.Rating, review.Comment, review.Helpful, review.Verified, review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrReviewDuplicate
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

func (r *reviewRepository) ListByProduct(productID string, limit int) ([]domain.Review, error) {
	return r.list(`product_id = $1`, productID, limit)
}

func (r *reviewRepository) ListByUser(userID string, limit int) ([]domain.Review, error) {
	return r.list(`user_id = $1`, userID, limit)
}

func (r *reviewRepository) ExistsForUserProduct(userID, productID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM reviews WHERE user_id = $1 AND product_id = $2
	`, userID, productID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check review exists: %w", err)
}

func (r *reviewRepository) list(where string, arg string, limit int) ([]domain.Review, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, user_id, product_id, order_id, rating, comment, helpful, verified, created_at
		FROM reviews
		WHERE ` + where + `
		ORDER BY created_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", arg, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var review domain.Review
		if err := rows.Scan(
			&review.ID, &review.UserID, &review.ProductID, &review.OrderID,
			&review.Rating, &review.Comment, &review.Helpful, &review.Verified, &review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	return reviews, nil
}

var _ domain.ReviewRepository = (*reviewRepository)(nil)
