package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/apnishop-api/internal/model"
)

type ReviewRepository interface {
	// Create fails with ErrDuplicate when the user already reviewed the product and with
	// ErrNotFound when the product or user does not exist.
	Create(ctx context.Context, rv *model.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error)
	// Update rewrites rating, title and comment of the review owned by rv.UserID.
	Update(ctx context.Context, rv *model.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns reviews newest first together with the unpaginated total.
	List(ctx context.Context, f model.ReviewFilter) ([]model.Review, int, error)
	Summary(ctx context.Context, productID uuid.UUID) (model.RatingSummary, error)
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

const reviewColumns = `r.id, r.product_id, r.user_id, r.rating, r.title, r.comment, r.is_verified_purchase,
	TRIM(u.first_name || ' ' || u.last_name), r.created_at, r.updated_at`

func scanReview(row pgx.Row, rv *model.Review) error {
	return row.Scan(
		&rv.ID, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Title, &rv.Comment, &rv.IsVerifiedPurchase,
		&rv.UserName, &rv.CreatedAt, &rv.UpdatedAt,
	)
}

// reviewErr maps constraint failures on reviews to repository sentinels.
func reviewErr(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return ErrDuplicate
	case isForeignKeyViolation(err):
		return ErrNotFound
	case isCheckViolation(err):
		return ErrInvalid
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *pgReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	rv.ID = uuid.New()
	// A review is a verified purchase when the user has a delivered order containing the product.
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (id, product_id, user_id, rating, title, comment, is_verified_purchase, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, EXISTS (
			SELECT 1 FROM order_items oi JOIN orders o ON o.id = oi.order_id
			WHERE o.user_id = $3 AND oi.product_id = $2 AND o.status = 'DELIVERED'
		 ), NOW(), NOW()
		 RETURNING is_verified_purchase, created_at, updated_at`,
		rv.ID, rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Comment,
	).Scan(&rv.IsVerifiedPurchase, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return reviewErr("create review", err)
	}
	return nil
}

func (r *pgReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	rv := &model.Review{}
	err := scanReview(r.pool.QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews r JOIN users u ON u.id = r.user_id WHERE r.id = $1`, id,
	), rv)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}

func (r *pgReviewRepo) Update(ctx context.Context, rv *model.Review) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE reviews SET rating = $3, title = $4, comment = $5, updated_at = NOW()
		 WHERE id = $1 AND user_id = $2
		 RETURNING product_id, is_verified_purchase, created_at, updated_at`,
		rv.ID, rv.UserID, rv.Rating, rv.Title, rv.Comment,
	).Scan(&rv.ProductID, &rv.IsVerifiedPurchase, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return reviewErr("update review", err)
	}
	return nil
}

func (r *pgReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgReviewRepo) List(ctx context.Context, f model.ReviewFilter) ([]model.Review, int, error) {
	where := `WHERE ($1::uuid IS NULL OR r.product_id = $1) AND ($2 = 0 OR r.rating = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reviews r `+where, f.ProductID, f.Rating).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews r JOIN users u ON u.id = r.user_id `+where+`
		 ORDER BY r.created_at DESC, r.id LIMIT $3 OFFSET $4`,
		f.ProductID, f.Rating, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	reviews, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Review, error) {
		var rv model.Review
		err := scanReview(row, &rv)
		return rv, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan review: %w", err)
	}
	return reviews, total, nil
}

func (r *pgReviewRepo) Summary(ctx context.Context, productID uuid.UUID) (model.RatingSummary, error) {
	var s model.RatingSummary
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8 FROM reviews WHERE product_id = $1`, productID,
	).Scan(&s.Count, &s.Average)
	if err != nil {
		return s, fmt.Errorf("review summary: %w", err)
	}
	return s, nil
}
