package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/apnishop-api/internal/model"
)

type CouponRepository interface {
	Create(ctx context.Context, c *model.Coupon) error
	// GetByCode looks the code up case-insensitively. tx may be nil.
	GetByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)
	// Update rewrites every field but the usage count. A limit below the current usage
	// fails with ErrInvalid.
	Update(ctx context.Context, c *model.Coupon) error
	// Deactivate switches the coupon off without touching its usage history.
	Deactivate(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	// IncrementUsage records one redemption. It fails with ErrCouponExhausted when the
	// usage limit has already been reached.
	IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type pgCouponRepo struct{ pool *pgxpool.Pool }

func NewCouponRepository(pool *pgxpool.Pool) CouponRepository {
	return &pgCouponRepo{pool: pool}
}

const couponColumns = `id, code, description, discount_type, discount_value, min_order_value, max_discount,
	usage_limit, used_count, valid_from, valid_to, is_active, created_at, updated_at`

func scanCoupon(row pgx.Row, c *model.Coupon) error {
	return row.Scan(
		&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue, &c.MinOrderValue, &c.MaxDiscount,
		&c.UsageLimit, &c.UsedCount, &c.ValidFrom, &c.ValidTo, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
}

func (r *pgCouponRepo) Create(ctx context.Context, c *model.Coupon) error {
	c.ID = uuid.New()
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	err := r.pool.QueryRow(ctx,
		`INSERT INTO coupons (id, code, description, discount_type, discount_value, min_order_value,
			max_discount, usage_limit, used_count, valid_from, valid_to, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, NOW(), NOW())
		 RETURNING used_count, created_at, updated_at`,
		c.ID, c.Code, c.Description, c.DiscountType, c.DiscountValue, c.MinOrderValue,
		c.MaxDiscount, c.UsageLimit, c.ValidFrom, c.ValidTo, c.IsActive,
	).Scan(&c.UsedCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

func (r *pgCouponRepo) GetByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error) {
	c := &model.Coupon{}
	err := scanCoupon(pick(r.pool, tx).QueryRow(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1`, strings.ToUpper(strings.TrimSpace(code)),
	), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func (r *pgCouponRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	c := &model.Coupon{}
	err := scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by id: %w", err)
	}
	return c, nil
}

func (r *pgCouponRepo) List(ctx context.Context) ([]model.Coupon, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	coupons, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Coupon, error) {
		var c model.Coupon
		err := scanCoupon(row, &c)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan coupon: %w", err)
	}
	return coupons, nil
}

func (r *pgCouponRepo) Update(ctx context.Context, c *model.Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	err := scanCoupon(r.pool.QueryRow(ctx,
		`UPDATE coupons SET code = $2, description = $3, discount_type = $4, discount_value = $5,
			min_order_value = $6, max_discount = $7, usage_limit = $8, valid_from = $9, valid_to = $10,
			is_active = $11, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+couponColumns,
		c.ID, c.Code, c.Description, c.DiscountType, c.DiscountValue, c.MinOrderValue,
		c.MaxDiscount, c.UsageLimit, c.ValidFrom, c.ValidTo, c.IsActive,
	), c)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrDuplicate
		case isCheckViolation(err):
			return ErrInvalid
		}
		return fmt.Errorf("update coupon: %w", err)
	}
	return nil
}

func (r *pgCouponRepo) Deactivate(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	c := &model.Coupon{}
	err := scanCoupon(r.pool.QueryRow(ctx,
		`UPDATE coupons SET is_active = FALSE, updated_at = NOW() WHERE id = $1 RETURNING `+couponColumns, id,
	), c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("deactivate coupon: %w", err)
	}
	return c, nil
}

func (r *pgCouponRepo) IncrementUsage(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	ct, err := tx.Exec(ctx,
		`UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
		 WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, id,
	)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrCouponExhausted
	}
	return nil
}
